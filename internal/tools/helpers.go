// Package tools implements the MCP tool handlers of ccmem.
//
// Each tool is a struct holding its dependencies, with Definition()
// returning the mcp.Tool schema and Handle() serving a call. Failures
// come back as tool errors reading "Error: <message>"; a store failure
// that is not the caller's doing is logged and reported generically.
package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cast"

	"github.com/adestefa/ccmem/internal/logging"
	"github.com/adestefa/ccmem/internal/risk"
	"github.com/adestefa/ccmem/internal/store"
)

// Tool is what the server registers.
type Tool interface {
	Definition() mcp.Tool
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

func logger() *slog.Logger { return logging.For("tools") }

// errorResult is a tool error in the "Error: ..." form.
func errorResult(format string, args ...any) *mcp.CallToolResult {
	return mcp.NewToolResultError("Error: " + fmt.Sprintf(format, args...))
}

// failure maps an operation error to a tool error. Missing records,
// constraint violations, lost version races and bad input are the
// caller's to fix and are shown as they are; anything else is logged.
func failure(op string, err error) *mcp.CallToolResult {
	var ce *store.ConstraintError
	switch {
	case errors.Is(err, store.ErrNotFound):
		return errorResult("%s", err.Error())
	case errors.As(err, &ce):
		return errorResult("%s", ce.Error())
	case errors.Is(err, store.ErrConflict):
		return errorResult("%s was changed by another writer, try again.", op)
	case errors.Is(err, risk.ErrEmptyTerm):
		return errorResult("%s", err.Error())
	}
	logger().Error("tool failed", "op", op, "error", err)
	return errorResult("could not %s. See the server log for details.", op)
}

// idArg reads a required integer argument. JSON numbers and numeric
// strings are accepted; fractions are not.
func idArg(req mcp.CallToolRequest, key string) (int64, error) {
	v, ok := req.GetArguments()[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("'%s' is required", key)
	}
	return toInt64(key, v)
}

// optIDArg reads an optional integer argument; ok is false when absent.
func optIDArg(req mcp.CallToolRequest, key string) (id int64, ok bool, err error) {
	v, present := req.GetArguments()[key]
	if !present || v == nil {
		return 0, false, nil
	}
	id, err = toInt64(key, v)
	return id, err == nil, err
}

func toInt64(key string, v any) (int64, error) {
	if f, isFloat := v.(float64); isFloat && f != math.Trunc(f) {
		return 0, fmt.Errorf("'%s' must be an integer", key)
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return 0, fmt.Errorf("'%s' must be an integer", key)
	}
	return n, nil
}

// intArg reads an optional integer argument with a default.
func intArg(req mcp.CallToolRequest, key string, def int) (int, error) {
	n, ok, err := optIDArg(req, key)
	if err != nil || !ok {
		return def, err
	}
	return int(n), nil
}

// boolArg reads an optional boolean argument; "true"/"false" strings are
// accepted.
func boolArg(req mcp.CallToolRequest, key string, def bool) bool {
	v, ok := req.GetArguments()[key]
	if !ok || v == nil {
		return def
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return def
	}
	return b
}

// stringsArg reads an optional array of strings. Anything other than an
// array whose items are all strings is rejected; a bare string is not
// split into words.
func stringsArg(req mcp.CallToolRequest, key string) ([]string, error) {
	v, ok := req.GetArguments()[key]
	if !ok || v == nil {
		return nil, nil
	}
	bad := fmt.Errorf("'%s' must be an array of strings", key)
	switch items := v.(type) {
	case []string:
		return items, nil
	case []any:
		out := make([]string, 0, len(items))
		for _, it := range items {
			str, isString := it.(string)
			if !isString {
				return nil, bad
			}
			out = append(out, str)
		}
		return out, nil
	default:
		return nil, bad
	}
}

// requiredStrings is stringsArg for an argument that must be present.
func requiredStrings(req mcp.CallToolRequest, key string) ([]string, error) {
	if v, ok := req.GetArguments()[key]; !ok || v == nil {
		return nil, fmt.Errorf("'%s' is required", key)
	}
	return stringsArg(req, key)
}

// presentString reads a string argument that must be present but may be
// empty.
func presentString(req mcp.CallToolRequest, key string) (string, error) {
	v, ok := req.GetArguments()[key]
	if !ok || v == nil {
		return "", fmt.Errorf("'%s' is required", key)
	}
	str, isString := v.(string)
	if !isString {
		return "", fmt.Errorf("'%s' must be a string", key)
	}
	return str, nil
}

// requiredString reads a non-empty string argument.
func requiredString(req mcp.CallToolRequest, key string) (string, error) {
	s := req.GetString(key, "")
	if s == "" {
		return "", fmt.Errorf("'%s' is required", key)
	}
	return s, nil
}

// files converts an optional filesEdited argument to a FileList; absent
// stays nil so the column is NULL.
func files(req mcp.CallToolRequest) (store.FileList, error) {
	f, err := stringsArg(req, "filesEdited")
	if err != nil || f == nil {
		return nil, err
	}
	return store.FileList(f), nil
}
