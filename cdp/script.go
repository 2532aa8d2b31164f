package cdp

import (
	"context"
	"encoding/json"
	"fmt"

	cdpr "github.com/chromedp/cdproto/runtime"
	"github.com/mailru/easyjson"

	"github.com/partnet/seauto/api"
	"github.com/partnet/seauto/common"
)

// element is a node held by the page of one session.
type element struct {
	sessionID string
	objectID  cdpr.RemoteObjectID
}

func (e *element) ID() string { return string(e.objectID) }

// ScriptError is a JavaScript exception thrown by an executed script.
type ScriptError struct {
	Details *cdpr.ExceptionDetails
}

func (e *ScriptError) Error() string {
	msg := e.Details.Text
	if e.Details.Exception != nil && e.Details.Exception.Description != "" {
		msg = e.Details.Exception.Description
	}
	return "script threw: " + msg
}

// callFunction runs decl with this bound to obj and converts the result.
func (t *Target) callFunction(
	ctx context.Context, obj cdpr.RemoteObjectID, decl string, args ...interface{},
) (interface{}, error) {
	callArgs := make([]*cdpr.CallArgument, len(args))
	for i, a := range args {
		ca, err := callArgument(ctx, a)
		if err != nil {
			return nil, err
		}
		callArgs[i] = ca
	}

	params := cdpr.CallFunctionOn(decl).WithObjectID(obj).WithArguments(callArgs)
	res, exc, err := t.client.Runtime.CallFunctionOn(ctx, params)
	if err != nil {
		return nil, common.CommunicationError("Runtime.callFunctionOn", err)
	}
	if exc != nil {
		return nil, &ScriptError{Details: exc}
	}

	return t.convert(ctx, res)
}

func callArgument(ctx context.Context, v interface{}) (*cdpr.CallArgument, error) {
	if ref, ok := v.(api.ElementRef); ok {
		el, ok := ref.(*element)
		if !ok || el.sessionID != GetSessionID(ctx) {
			return nil, fmt.Errorf("stale element %s: it belongs to another window", ref.ID())
		}
		return &cdpr.CallArgument{ObjectID: el.objectID}, nil
	}
	if vs, ok := v.([]interface{}); ok {
		for _, e := range vs {
			if _, ok := e.(api.ElementRef); ok {
				return nil, fmt.Errorf("%w: elements cannot be passed inside a slice", common.ErrInvalidArgument)
			}
		}
	}

	buf, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding script argument: %v", common.ErrInvalidArgument, err)
	}
	return &cdpr.CallArgument{Value: easyjson.RawMessage(buf)}, nil
}

// convert turns a remote object into a Go value. Nodes become elements and
// arrays are walked so the nodes inside them survive; any other object is
// copied by value.
func (t *Target) convert(ctx context.Context, obj *cdpr.RemoteObject) (interface{}, error) {
	if obj == nil || obj.Type == cdpr.TypeUndefined || obj.Subtype == cdpr.SubtypeNull {
		return nil, nil
	}
	if obj.Type != cdpr.TypeObject && obj.Type != cdpr.TypeFunction {
		if obj.UnserializableValue != "" {
			return obj.UnserializableValue.String(), nil
		}
		return decodeValue(obj.Value)
	}

	switch obj.Subtype {
	case cdpr.SubtypeNode:
		return &element{sessionID: GetSessionID(ctx), objectID: obj.ObjectID}, nil
	case cdpr.SubtypeArray:
		n, err := t.byValue(ctx, obj.ObjectID, "function(){return this.length}")
		if err != nil {
			return nil, err
		}
		length, _ := n.(float64)
		out := make([]interface{}, int(length))
		for i := range out {
			params := cdpr.CallFunctionOn("function(i){return this[i]}").
				WithObjectID(obj.ObjectID).
				WithArguments([]*cdpr.CallArgument{{Value: easyjson.RawMessage(fmt.Sprint(i))}})
			item, exc, err := t.client.Runtime.CallFunctionOn(ctx, params)
			if err != nil {
				return nil, common.CommunicationError("Runtime.callFunctionOn", err)
			}
			if exc != nil {
				return nil, &ScriptError{Details: exc}
			}
			if out[i], err = t.convert(ctx, item); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	return t.byValue(ctx, obj.ObjectID, "function(){return this}")
}

func (t *Target) byValue(ctx context.Context, obj cdpr.RemoteObjectID, decl string) (interface{}, error) {
	params := cdpr.CallFunctionOn(decl).WithObjectID(obj).WithReturnByValue(true)
	res, exc, err := t.client.Runtime.CallFunctionOn(ctx, params)
	if err != nil {
		return nil, common.CommunicationError("Runtime.callFunctionOn", err)
	}
	if exc != nil {
		return nil, &ScriptError{Details: exc}
	}
	return decodeValue(res.Value)
}

func decodeValue(raw easyjson.RawMessage) (interface{}, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decoding script result: %w", err)
	}
	return v, nil
}
