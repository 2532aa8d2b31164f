package common_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gopkg.in/guregu/null.v3"

	"github.com/partnet/seauto/api"
	"github.com/partnet/seauto/common"
)

func TestErrorKinds(t *testing.T) {
	t.Parallel()

	reset := errors.New("connection reset")
	comm := common.CommunicationError("ReadyState", reset)
	assert.ErrorIs(t, comm, common.ErrCommunication)
	assert.ErrorIs(t, comm, reset)
	assert.EqualError(t, comm, "ReadyState: communication error: connection reset")
	assert.NoError(t, common.CommunicationError("ReadyState", nil))

	terr := &common.TimeoutError{
		Description: "the page to load",
		Elapsed:     1500 * time.Millisecond,
		Polls:       4,
		LastErr:     comm,
	}
	assert.ErrorIs(t, terr, common.ErrTimeout)
	assert.NotErrorIs(t, terr, common.ErrCommunication)
	assert.EqualError(t, terr,
		"timed out after 1.5s (4 polls) waiting for the page to load: last error: ReadyState: communication error: connection reset")

	werr := &common.WindowNotFoundError{
		Criteria: common.WindowCriteria{Title: null.StringFrom("Report")},
		Handles:  []api.WindowHandle{"a", "b"},
	}
	assert.ErrorIs(t, werr, common.ErrWindowNotFound)
	assert.EqualError(t, werr, `no window matching {title "Report"} among handles [a, b]`)

	nf := &common.NotFoundError{Locator: api.CSS("#x")}
	assert.ErrorIs(t, nf, common.ErrNotFound)
	assert.EqualError(t, nf, "no element found for By.css selector: #x")
}
