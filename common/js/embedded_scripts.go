package js

import (
	_ "embed"
)

// DialogOverrideScript replaces window.alert and window.confirm so that,
// instead of opening a dialog, the message is stored in the alertMsg cookie
// with newlines replaced by #newLine#. The replacement returns arguments[0]
// to the page as the dialog answer.
//
//go:embed dialog_override.js
var DialogOverrideScript string

// ResponseListenerScript arms the response listener: it resets
// window.document.msgArray and, once per document, hooks XMLHttpRequest
// and fetch so that every successful response body is appended to it.
//
//go:embed response_listener.js
var ResponseListenerScript string

// ResponseListenerResetScript empties the captured response list.
//
//go:embed response_listener_reset.js
var ResponseListenerResetScript string

// ResponseListenerReadScript returns a copy of the captured response list,
// or null when the listener was never armed in this document.
//
//go:embed response_listener_read.js
var ResponseListenerReadScript string

// TriggerEventScript fires the arguments[1] event ("focus" or "blur") on
// arguments[0], through jQuery when the page has it.
//
//go:embed trigger_event.js
var TriggerEventScript string

// ElementStateScript reports {displayed, enabled, tag, textContent, innerText}
// for arguments[0].
//
//go:embed element_state.js
var ElementStateScript string

// DialogScopeScript looks for a visible jQuery UI dialog containing
// arguments[0] and returns [dialog, number of .blockUI overlays in it].
//
//go:embed dialog_scope.js
var DialogScopeScript string

// SelectOptionScript selects the first option of the select arguments[0]
// whose arguments[1] ("text" or "value") equals arguments[2] and fires
// change when the selection moved. It returns the option index, -1 when no
// option matched, -2 when arguments[0] is not a select and -3 when the
// matching option is disabled.
//
//go:embed select_option.js
var SelectOptionScript string

// DropdownOptionsScript returns [{text, value, selected}] for every option of
// the select arguments[0], or null when it is not a select.
//
//go:embed dropdown_options.js
var DropdownOptionsScript string
