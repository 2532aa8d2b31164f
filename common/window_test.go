package common_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v3"

	"github.com/partnet/seauto/api"
	"github.com/partnet/seauto/common"
	"github.com/partnet/seauto/sim"
)

type windowSet struct {
	tv      *testView
	handles []api.WindowHandle
}

// newWindowSet opens main, then a popup with #marker titled "Popup" that is
// still loading, then a report window titled "Report".
func newWindowSet(t *testing.T) *windowSet {
	t.Helper()

	tv := newTestView(t, sim.Page{URL: "http://sim/main", Title: "Main", HTML: `<p id="main">main</p>`}, nil)
	first, err := tv.Target().CurrentWindow(context.Background())
	require.NoError(t, err)

	popup, err := tv.target.OpenWindow(sim.Page{
		URL: "http://sim/popup", Title: "Popup", HTML: `<div id="marker">x</div>`,
		ReadyStates: []string{"loading", "complete"},
	})
	require.NoError(t, err)
	report, err := tv.target.OpenWindow(sim.Page{URL: "http://sim/report", Title: "Report", HTML: `<table id="report"></table>`})
	require.NoError(t, err)

	return &windowSet{tv: tv, handles: []api.WindowHandle{first, popup, report}}
}

func TestSwitchToNewWindow(t *testing.T) {
	t.Parallel()

	ws := newWindowSet(t)
	ctx := context.Background()

	h, err := ws.tv.SwitchToNewWindow(ctx, api.ID("marker"), null.String{})
	require.NoError(t, err)
	assert.Equal(t, ws.handles[1], h)

	cur, err := ws.tv.Target().CurrentWindow(ctx)
	require.NoError(t, err)
	assert.Equal(t, ws.handles[1], cur)
}

func TestSwitchToOpenWindow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		criteria common.WindowCriteria
		want     int
	}{
		{
			name:     "by title",
			criteria: common.WindowCriteria{Title: null.StringFrom("Report")},
			want:     2,
		},
		{
			name: "by locator and title",
			criteria: common.WindowCriteria{
				Locator: ptr(api.ID("main")),
				Title:   null.StringFrom("Main"),
			},
			want: 0,
		},
		{
			name: "by element marker",
			criteria: common.WindowCriteria{
				Element: ptr(common.LocatorMarker(api.CSS("table#report"))),
			},
			want: 2,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ws := newWindowSet(t)
			h, err := ws.tv.SwitchToWindow(context.Background(), tt.criteria, common.ExpectExisting)
			require.NoError(t, err)
			assert.Equal(t, ws.handles[tt.want], h)
		})
	}
}

func TestSwitchToWindowNoMatch(t *testing.T) {
	t.Parallel()

	ws := newWindowSet(t)
	ctx := context.Background()

	_, err := ws.tv.SwitchToOpenWindow(ctx, api.ID("marker"), null.StringFrom("Report"))
	require.ErrorIs(t, err, common.ErrWindowNotFound)

	var werr *common.WindowNotFoundError
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, ws.handles, werr.Handles)
	assert.Contains(t, err.Error(), `title "Report"`)

	// every window was tried, the last one stays active
	cur, err := ws.tv.Target().CurrentWindow(ctx)
	require.NoError(t, err)
	assert.Equal(t, ws.handles[2], cur)
}

func TestSwitchToNewWindowNeverOpens(t *testing.T) {
	t.Parallel()

	tv := newTestView(t, sim.Page{Title: "Main", HTML: `<p id="main">main</p>`}, nil)
	_, err := tv.SwitchToNewWindow(context.Background(), api.ID("main"), null.String{})

	var terr *common.TimeoutError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "at least 2 window(s) to be open", terr.Description)
}

func TestSwitchToWindowCustomMarker(t *testing.T) {
	t.Parallel()

	ws := newWindowSet(t)
	var looked int
	marker := common.ElementMarker{
		Name: "report table",
		Lookup: func(ctx context.Context, t api.Target) (api.ElementRef, error) {
			looked++
			return t.FindElement(ctx, api.ID("report"))
		},
	}

	h, err := ws.tv.SwitchToOpenWindowWithElement(context.Background(), marker, null.String{})
	require.NoError(t, err)
	assert.Equal(t, ws.handles[2], h)
	assert.Equal(t, 3, looked)
}

func TestWindowCriteriaValidation(t *testing.T) {
	t.Parallel()

	tv := newTestView(t, sim.Page{HTML: "<p/>"}, nil)
	loc := api.ID("x")
	marker := common.LocatorMarker(loc)

	_, err := tv.SwitchToWindow(context.Background(), common.WindowCriteria{}, common.ExpectExisting)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)

	_, err = tv.SwitchToWindow(context.Background(),
		common.WindowCriteria{Element: &marker, Locator: &loc}, common.ExpectNew)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
}
