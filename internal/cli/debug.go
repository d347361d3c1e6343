package cli

import (
	"encoding/json"
	"fmt"

	"github.com/julianstephens/hearth/internal/models"
)

type DebugCmd struct {
	DBPath *DebugDBPathCmd `cmd:"" help:"Show storage paths."`
	Dump   *DebugDumpCmd   `cmd:"" help:"Dump the in-memory dataset as JSON."`
	Keys   *DebugKeysCmd   `cmd:"" help:"List keys held in the fallback file."`
}

type DebugDBPathCmd struct{}

func (cmd *DebugDBPathCmd) Run(ctx *Context) error {
	output := map[string]string{
		"driver":   ctx.Store.Driver(),
		"path":     ctx.Store.Path(),
		"fallback": ctx.Fallback.Path(),
	}
	return printJSON(ctx, output)
}

type DebugDumpCmd struct{}

func (cmd *DebugDumpCmd) Run(ctx *Context) error {
	raw, err := models.EncodeAppData(ctx.Journal.Snapshot())
	if err != nil {
		return fmt.Errorf("failed to encode dataset: %w", err)
	}
	return printJSON(ctx, json.RawMessage(raw))
}

type DebugKeysCmd struct{}

func (cmd *DebugKeysCmd) Run(ctx *Context) error {
	return printJSON(ctx, map[string][]string{"keys": ctx.Fallback.Keys()})
}

func printJSON(ctx *Context, v any) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	ctx.println(string(jsonBytes))
	return nil
}
