// Package mcptools exposes patch navigation as MCP tools so an assistant or
// any MCP client can switch patches on a running relay.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/chase3718/patchthru/patch"
)

// Navigator is the patch navigation the tools drive.
type Navigator interface {
	Current() (patch.Selection, bool)
	Increment(delta int) (patch.Selection, bool)
	Select(index int) (patch.Selection, bool)
	Reset() (patch.Selection, bool)
	HasPatches() bool
	Patches() []patch.Patch
}

// handlers serializes tool calls so the navigator keeps a single owner even
// though the MCP server runs handlers concurrently.
type handlers struct {
	mu     sync.Mutex
	nav    Navigator
	logger *slog.Logger
}

// NewServer builds an MCP server with the patch tools registered.
func NewServer(nav Navigator, version string, logger *slog.Logger) *server.MCPServer {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handlers{nav: nav, logger: logger}

	s := server.NewMCPServer(
		"patchthru",
		version,
		server.WithToolCapabilities(false),
	)

	s.AddTool(mcp.NewTool("patch_current",
		mcp.WithDescription("Returns the currently selected patch."),
	), h.current)

	s.AddTool(mcp.NewTool("patch_next",
		mcp.WithDescription("Selects and sends the next patch."),
	), h.next)

	s.AddTool(mcp.NewTool("patch_previous",
		mcp.WithDescription("Selects and sends the previous patch."),
	), h.previous)

	s.AddTool(mcp.NewTool("patch_step",
		mcp.WithDescription("Moves the selection by a signed number of patches and sends the result."),
		mcp.WithNumber("delta", mcp.Required(), mcp.Description("Number of patches to move, negative to go back.")),
	), h.step)

	s.AddTool(mcp.NewTool("patch_select",
		mcp.WithDescription("Selects and sends the patch with the given 1-based number."),
		mcp.WithNumber("number", mcp.Required(), mcp.Description("Patch number as shown in the list (1-based).")),
	), h.selectPatch)

	s.AddTool(mcp.NewTool("patch_reset",
		mcp.WithDescription("Selects the first patch and re-sends it, even if already selected."),
	), h.reset)

	s.AddTool(mcp.NewTool("patch_list",
		mcp.WithDescription("Lists all patches with their numbers and MIDI settings as JSON."),
	), h.list)

	return s
}

// ServeStdio runs the tool server on stdin and stdout until the client
// disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func describe(sel patch.Selection) string {
	return fmt.Sprintf("#%d %s", sel.Number, sel.Patch.Name)
}

func (h *handlers) current(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sel, ok := h.nav.Current()
	if !ok {
		return mcp.NewToolResultText("No patches loaded."), nil
	}
	return mcp.NewToolResultText(describe(sel)), nil
}

func (h *handlers) move(delta int) *mcp.CallToolResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.nav.HasPatches() {
		return mcp.NewToolResultText("No patches loaded.")
	}
	sel, ok := h.nav.Increment(delta)
	if !ok {
		cur, _ := h.nav.Current()
		if delta < 0 {
			return mcp.NewToolResultText("Already at the first patch: " + describe(cur))
		}
		return mcp.NewToolResultText("Already at the last patch: " + describe(cur))
	}
	h.logger.Info("mcp: patch selected", "number", sel.Number, "patch", sel.Patch.Name)
	return mcp.NewToolResultText(describe(sel))
}

func (h *handlers) next(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.move(1), nil
}

func (h *handlers) previous(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.move(-1), nil
}

func (h *handlers) step(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	delta, err := request.RequireInt("delta")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return h.move(delta), nil
}

func (h *handlers) selectPatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	number, err := request.RequireInt("number")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.nav.HasPatches() {
		return mcp.NewToolResultText("No patches loaded."), nil
	}
	if sel, ok := h.nav.Select(number - 1); ok {
		h.logger.Info("mcp: patch selected", "number", sel.Number, "patch", sel.Patch.Name)
		return mcp.NewToolResultText(describe(sel)), nil
	}
	cur, _ := h.nav.Current()
	return mcp.NewToolResultText("Already selected: " + describe(cur)), nil
}

func (h *handlers) reset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sel, ok := h.nav.Reset()
	if !ok {
		return mcp.NewToolResultText("No patches loaded."), nil
	}
	h.logger.Info("mcp: patch reset", "patch", sel.Patch.Name)
	return mcp.NewToolResultText(describe(sel)), nil
}

type listEntry struct {
	Number   int    `json:"number"`
	Name     string `json:"name"`
	Channel  uint8  `json:"channel"`
	BankMSB  *uint8 `json:"bank_msb,omitempty"`
	BankLSB  *uint8 `json:"bank_lsb,omitempty"`
	Program  *uint8 `json:"program,omitempty"`
	Selected bool   `json:"selected,omitempty"`
}

func (h *handlers) list(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.mu.Lock()
	patches := h.nav.Patches()
	cur, _ := h.nav.Current()
	h.mu.Unlock()

	entries := make([]listEntry, 0, len(patches))
	for i, p := range patches {
		entries = append(entries, listEntry{
			Number:   i + 1,
			Name:     p.Name,
			Channel:  p.Channel,
			BankMSB:  p.BankMSB,
			BankLSB:  p.BankLSB,
			Program:  p.Program,
			Selected: i+1 == cur.Number,
		})
	}
	asJSON, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal patch list: %w", err)
	}
	return mcp.NewToolResultText(string(asJSON)), nil
}
