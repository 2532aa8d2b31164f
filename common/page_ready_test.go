package common_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partnet/seauto/api"
	"github.com/partnet/seauto/common"
	"github.com/partnet/seauto/sim"
)

// readyStateFaults counts readiness queries and fails the first failN of them.
type readyStateFaults struct {
	calls int
	failN int
}

func (p *readyStateFaults) fault(op string) error {
	if op != "ReadyState" {
		return nil
	}
	p.calls++
	if p.calls <= p.failN {
		return errors.New("target unreachable")
	}
	return nil
}

func TestWaitForPageToLoad(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		states    []string
		failN     int
		strict    bool
		conf      map[string]string
		wantCalls int
		wantErr   error
	}{
		{name: "already complete", wantCalls: 1},
		{name: "completes on third poll", states: []string{"loading", "interactive", "complete"}, wantCalls: 3},
		{name: "never completes", states: []string{"loading"}, wantErr: common.ErrTimeout},
		{name: "communication errors ignored", failN: 2, wantCalls: 3},
		{name: "strict fails on communication error", failN: 2, strict: true, wantCalls: 1, wantErr: common.ErrCommunication},
		{
			name:    "malformed timeout",
			conf:    map[string]string{common.KeyPageLoadTimeout: "soon"},
			wantErr: common.ErrConfiguration,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			faults := &readyStateFaults{failN: tt.failN}
			tv := newTestView(t, sim.Page{URL: "http://sim/", HTML: "<p>hi</p>", ReadyStates: tt.states},
				tt.conf, sim.WithFaults(faults.fault))

			var err error
			if tt.strict {
				err = tv.WaitForPageToLoadStrict(context.Background())
			} else {
				err = tv.WaitForPageToLoad(context.Background())
			}
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			if tt.wantCalls > 0 {
				assert.Equal(t, tt.wantCalls, faults.calls)
			}
		})
	}
}

func TestWaitForPageToLoadTimeoutDescription(t *testing.T) {
	t.Parallel()

	tv := newTestView(t, sim.Page{HTML: "<p/>", ReadyStates: []string{"loading"}}, nil)
	err := tv.WaitForPageToLoad(context.Background())

	var terr *common.TimeoutError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "the page to load", terr.Description)
}

func TestClickAndWait(t *testing.T) {
	t.Parallel()

	tv := newTestView(t, sim.Page{HTML: `<a id="next" onclick="window.went = true">next</a>`}, nil)
	ctx := context.Background()

	el, err := tv.Target().FindElement(ctx, api.ID("next"))
	require.NoError(t, err)
	require.NoError(t, tv.ClickAndWait(ctx, el))

	went, err := tv.Target().ExecuteScript(ctx, "return window.went;")
	require.NoError(t, err)
	assert.Equal(t, true, went)
	assert.Equal(t, 1, tv.target.Interactions("next").Clicks)
}
