package common_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partnet/seauto/api"
	"github.com/partnet/seauto/common"
	"github.com/partnet/seauto/sim"
)

const fieldPage = `<html><body>
<input id="zip" onblur="window.blurs = (window.blurs || 0) + 1; if (window.blurs >= 2) document.getElementById('city').value = 'Provo';">
<input id="city">
<input id="state" value="Utah County">
</body></html>`

func TestSetValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		value        string
		ignored      int
		conf         map[string]string
		want         string
		wantAttempts int
		wantWarning  bool
	}{
		{name: "accepted first time", value: "84604", want: "84604", wantAttempts: 1},
		{name: "accepted on third attempt", value: "84604", ignored: 2, want: "84604", wantAttempts: 3},
		{name: "never accepted", value: "84604", ignored: 10, want: "", wantAttempts: 3, wantWarning: true},
		{
			name: "more retries configured", value: "84604", ignored: 10,
			conf: map[string]string{common.KeyFieldRetries: "5"}, want: "", wantAttempts: 5, wantWarning: true,
		},
		{
			name: "zero retries still writes once", value: "84604", ignored: 10,
			conf: map[string]string{common.KeyFieldRetries: "0"}, want: "", wantAttempts: 1, wantWarning: true,
		},
		{name: "blank value is not retried", value: "", ignored: 10, want: "", wantAttempts: 1},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tv := newTestView(t, sim.Page{HTML: fieldPage}, tt.conf)
			tv.target.IgnoreWrites("zip", tt.ignored)

			got, err := tv.SetValue(context.Background(), clickTarget(t, tv, "zip"), tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			n := tv.target.Interactions("zip")
			assert.Equal(t, sim.Interactions{Clicks: tt.wantAttempts, Clears: tt.wantAttempts, Writes: tt.wantAttempts}, n)
			assert.Equal(t, float64(tt.wantAttempts), testutil.ToFloat64(tv.metrics.FieldAttempts))
			if tt.wantWarning {
				assert.Len(t, tv.warnings(), 1)
			} else {
				assert.Empty(t, tv.warnings())
			}
		})
	}
}

func TestSetValueErrors(t *testing.T) {
	t.Parallel()

	tv := newTestView(t, sim.Page{HTML: fieldPage}, map[string]string{common.KeyFieldRetries: "many"})
	_, err := tv.SetValue(context.Background(), clickTarget(t, tv, "zip"), "1")
	assert.ErrorIs(t, err, common.ErrConfiguration)
}

func TestTriggerAndWaitForFieldToPopulate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("populated by trigger", func(t *testing.T) {
		t.Parallel()

		tv := newTestView(t, sim.Page{HTML: fieldPage}, nil)
		city, zip := clickTarget(t, tv, "city"), clickTarget(t, tv, "zip")
		require.NoError(t, tv.TriggerAndWaitForFieldToPopulate(ctx, 300*time.Millisecond, "Pro.*", city, zip))

		blurs, err := tv.Target().ExecuteScript(ctx, "return window.blurs;")
		require.NoError(t, err)
		assert.Equal(t, float64(2), blurs)
	})
	t.Run("already populated", func(t *testing.T) {
		t.Parallel()

		tv := newTestView(t, sim.Page{HTML: fieldPage}, nil)
		require.NoError(t, tv.WaitForFieldToPopulate(ctx, 300*time.Millisecond, `\w+ County`, clickTarget(t, tv, "state")))
	})
	t.Run("must match the whole value", func(t *testing.T) {
		t.Parallel()

		tv := newTestView(t, sim.Page{HTML: fieldPage}, nil)
		err := tv.WaitForFieldToPopulate(ctx, 50*time.Millisecond, "Utah", clickTarget(t, tv, "state"))
		require.ErrorIs(t, err, common.ErrTimeout)

		var terr *common.TimeoutError
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, "Field #state never matched the regex: 'Utah'", terr.Description)
	})
	t.Run("no trigger", func(t *testing.T) {
		t.Parallel()

		tv := newTestView(t, sim.Page{HTML: fieldPage}, nil)
		err := tv.WaitForFieldToPopulate(ctx, 50*time.Millisecond, "Pro.*", clickTarget(t, tv, "city"))
		assert.ErrorIs(t, err, common.ErrTimeout)
	})
	t.Run("invalid arguments", func(t *testing.T) {
		t.Parallel()

		tv := newTestView(t, sim.Page{HTML: fieldPage}, nil)
		city := clickTarget(t, tv, "city")
		assert.ErrorIs(t, tv.WaitForFieldToPopulate(ctx, time.Second, "(", city), common.ErrInvalidArgument)
		assert.ErrorIs(t, tv.WaitForFieldToPopulate(ctx, 0, ".*", city), common.ErrInvalidArgument)
	})
}

func TestFocusAndBlur(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tv := newTestView(t, sim.Page{HTML: `<input id="a" onfocus="window.seen = (window.seen || '') + 'f'" onblur="window.seen += 'b'">`}, nil)
	el, err := tv.Target().FindElement(ctx, api.ID("a"))
	require.NoError(t, err)

	require.NoError(t, tv.FocusElement(ctx, el))
	require.NoError(t, tv.BlurElement(ctx, el))

	seen, err := tv.Target().ExecuteScript(ctx, "return window.seen;")
	require.NoError(t, err)
	assert.Equal(t, "fb", seen)
}
