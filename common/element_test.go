package common_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partnet/seauto/api"
	"github.com/partnet/seauto/common"
	"github.com/partnet/seauto/sim"
)

const elementPage = `<html><body>
<button id="save" disabled>Save</button>
<button id="hidden" style="display:none">Hidden</button>
<span id="note" hidden>  secret note </span>
<dl id="details">
  <dt>Name</dt><dd>Jane</dd>
  <dt>City</dt><dd>Provo</dd>
</dl>
<dl id="dupes"><dt>Name</dt><dd>Jane</dd><dd>Joan</dd></dl>
<dl id="odd"><dt>Name</dt><p>nope</p></dl>
<div class="ui-dialog" style="display:none"><form class="edit"></form></div>
<div class="ui-dialog" id="dlg"><form class="edit"></form><div class="blockUI"></div></div>
</body></html>`

func TestWaitForPresenceOfElement(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tv := newTestView(t, sim.Page{HTML: elementPage}, nil)

	el, err := tv.WaitForPresenceOfElement(ctx, api.ID("save"), 0)
	require.NoError(t, err)
	id, _, err := tv.Target().ElementAttribute(ctx, el, "id")
	require.NoError(t, err)
	assert.Equal(t, "save", id)

	els, err := tv.WaitForPresenceOfAllElements(ctx, api.TagName("dd"), 0)
	require.NoError(t, err)
	assert.Len(t, els, 4)

	_, err = tv.WaitForElementToAppear(ctx, api.ID("missing"))
	require.ErrorIs(t, err, common.ErrTimeout)
	var terr *common.TimeoutError
	require.ErrorAs(t, err, &terr)
	assert.ErrorIs(t, terr.LastErr, common.ErrNotFound)
}

func TestWaitForElementToBeClickable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tv := newTestView(t, sim.Page{HTML: elementPage}, nil)

	_, err := tv.WaitForElementToBeClickable(ctx, api.ID("save"), 0)
	assert.ErrorIs(t, err, common.ErrTimeout, "disabled")
	_, err = tv.WaitForElementToBeClickable(ctx, api.ID("hidden"), 0)
	assert.ErrorIs(t, err, common.ErrTimeout, "not displayed")

	require.NoError(t, tv.target.Navigate(sim.Page{HTML: `<button id="save">Save</button>`}))
	_, err = tv.WaitForElementToBeClickable(ctx, api.ID("save"), 0)
	assert.NoError(t, err)
}

func TestGetHiddenText(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	for _, native := range []bool{false, true} {
		var opts []sim.Option
		if native {
			opts = append(opts, sim.WithNativeDialogs())
		}
		tv := newTestView(t, sim.Page{HTML: elementPage}, nil, opts...)
		el, err := tv.Target().FindElement(ctx, api.ID("note"))
		require.NoError(t, err)

		text, err := tv.GetHiddenText(ctx, el)
		require.NoError(t, err)
		assert.Equal(t, "  secret note ", text)
	}
}

func TestParseDescriptionList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tv := newTestView(t, sim.Page{HTML: elementPage}, nil)
	children := func(id string) []api.ElementRef {
		els, err := tv.Target().FindElements(ctx, api.CSS("#"+id+" > *"))
		require.NoError(t, err)
		return els
	}

	list, err := tv.ParseDescriptionList(ctx, children("details"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Name": "Jane", "City": "Provo"}, list)

	_, err = tv.ParseDescriptionList(ctx, children("dupes"))
	assert.EqualError(t, err, "key (Name) with multiple values (Jane) and (Joan)")

	_, err = tv.ParseDescriptionList(ctx, children("odd"))
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
}

func TestWaitForDialogToAppear(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tv := newTestView(t, sim.Page{HTML: elementPage}, nil)

	_, err := tv.WaitForDialogToAppear(ctx, "form.edit")
	assert.ErrorIs(t, err, common.ErrTimeout, "still blocked")

	require.NoError(t, tv.target.Navigate(sim.Page{
		HTML: `<div class="ui-dialog" id="dlg"><form class="edit"></form></div>`,
	}))
	dlg, err := tv.WaitForDialogToAppear(ctx, "form.edit")
	require.NoError(t, err)
	id, _, err := tv.Target().ElementAttribute(ctx, dlg, "id")
	require.NoError(t, err)
	assert.Equal(t, "dlg", id)

	_, err = tv.WaitForDialogToAppear(ctx, "table.other")
	assert.ErrorIs(t, err, common.ErrTimeout)
}

func TestScrollIntoView(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tv := newTestView(t, sim.Page{HTML: elementPage}, nil)
	el, err := tv.Target().FindElement(ctx, api.ID("save"))
	require.NoError(t, err)
	assert.NoError(t, tv.ScrollIntoView(ctx, el))
}

const selectPage = `<html><body>
<select id="size" onchange="document.getElementById('picked').value = this.value">
  <option value="s">Small</option>
  <option value="m" selected>  Medium
    size </option>
  <option value="l">Large</option>
  <option value="xl" disabled>Extra Large</option>
</select>
<input id="picked">
<select id="empty"></select>
<p id="para">not a select</p>
</body></html>`

func TestSelectOption(t *testing.T) {
	t.Parallel()

	byText := (*common.View).SelectByVisibleText
	byValue := (*common.View).SelectByValue
	tests := []struct {
		name         string
		id           string
		sel          func(*common.View, context.Context, api.ElementRef, string) error
		want         string
		wantErr      error
		wantSelected string
		wantPicked   string
	}{
		{name: "visible text", id: "size", sel: byText, want: "Large", wantSelected: "Large", wantPicked: "l"},
		{name: "value", id: "size", sel: byValue, want: "s", wantSelected: "Small", wantPicked: "s"},
		{name: "collapsed whitespace", id: "size", sel: byText, want: "Medium size", wantSelected: "Medium size"},
		{name: "missing text", id: "size", sel: byText, want: "Huge", wantErr: common.ErrNotFound, wantSelected: "Medium size"},
		{name: "missing value", id: "size", sel: byValue, want: "xxl", wantErr: common.ErrNotFound, wantSelected: "Medium size"},
		{
			name: "disabled option", id: "size", sel: byText, want: "Extra Large",
			wantErr: common.ErrInvalidArgument, wantSelected: "Medium size",
		},
		{name: "not a select", id: "para", sel: byText, want: "Small", wantErr: common.ErrInvalidArgument},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			tv := newTestView(t, sim.Page{HTML: selectPage}, nil)
			el := clickTarget(t, tv, tt.id)

			err := tt.sel(tv.View, ctx, el, tt.want)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantPicked, outValueOf(t, tv, "picked"), "change handler")

			if tt.wantSelected == "" {
				return
			}
			got, err := tv.GetSelectedVisibleText(ctx, el)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSelected, got)
		})
	}
}

func TestGetDropdownOptions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tv := newTestView(t, sim.Page{HTML: selectPage}, nil)

	opts, err := tv.GetDropdownOptions(ctx, clickTarget(t, tv, "size"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Small", "Medium size", "Large", "Extra Large"}, opts)

	opts, err = tv.GetDropdownOptions(ctx, clickTarget(t, tv, "empty"))
	require.NoError(t, err)
	assert.Empty(t, opts)

	_, err = tv.GetSelectedVisibleText(ctx, clickTarget(t, tv, "empty"))
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = tv.GetDropdownOptions(ctx, clickTarget(t, tv, "para"))
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
}

func TestSelectByVisibleTextAndWait(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	page := sim.Page{HTML: selectPage, ReadyStates: []string{"loading", "complete"}}

	tv := newTestView(t, page, nil)
	require.NoError(t, tv.SelectByVisibleTextAndWait(ctx, clickTarget(t, tv, "size"), "Large"))
	assert.Equal(t, "l", outValueOf(t, tv, "picked"))
	assert.Equal(t, float64(2), testutil.ToFloat64(tv.metrics.WaitPolls.WithLabelValues("page_ready")))

	tv = newTestView(t, page, nil)
	err := tv.SelectByVisibleTextAndWait(ctx, clickTarget(t, tv, "size"), "Huge")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Equal(t, float64(0), testutil.ToFloat64(tv.metrics.WaitPolls.WithLabelValues("page_ready")))
}

func outValueOf(t *testing.T, tv *testView, id string) string {
	t.Helper()

	v, err := tv.GetValue(context.Background(), clickTarget(t, tv, id))
	require.NoError(t, err)
	return v
}
