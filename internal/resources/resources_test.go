package resources

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adestefa/ccmem/internal/risk"
	"github.com/adestefa/ccmem/internal/store"
)

func newHandler(t *testing.T) (*Handler, *store.Store, *risk.Correlator) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "ccmem.db"), store.DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	c := risk.New(risk.FromStore(s))
	return NewHandler(s, c), s, c
}

func read(t *testing.T, fn func(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error), uri string, into any) {
	t.Helper()
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri
	out, err := fn(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, out, 1)
	tc, ok := out[0].(mcp.TextResourceContents)
	require.True(t, ok)
	require.Equal(t, "application/json", tc.MIMEType, tc.Text)
	require.NoError(t, json.Unmarshal([]byte(tc.Text), into))
}

func TestSummaryResource(t *testing.T) {
	h, s, _ := newHandler(t)
	ctx := context.Background()
	assert.Equal(t, SummaryURI, h.SummaryResource().URI)

	require.NoError(t, s.SetInfo(ctx, store.SectionArchitecture, "framework", "chi"))
	_, err := s.CreateStory(ctx, "Checkout")
	require.NoError(t, err)

	var got Summary
	read(t, h.HandleSummary, SummaryURI, &got)
	assert.Equal(t, 1, got.Counts.Stories)
	assert.Equal(t, []store.KeyValue{{Key: "framework", Value: "chi"}}, got.Knowledge[store.SectionArchitecture])
	assert.Empty(t, got.Knowledge[store.SectionTesting])
}

func TestRisksResource_ReportsDangling(t *testing.T) {
	h, s, c := newHandler(t)
	ctx := context.Background()
	assert.Equal(t, RisksURI, h.RisksResource().URI)

	storyID, err := s.CreateStory(ctx, "Checkout")
	require.NoError(t, err)
	taskID, err := s.CreateTask(ctx, storyID, "Payment form")
	require.NoError(t, err)
	rec, err := c.RecordLandmine(ctx, risk.Incident{
		TaskID: taskID, SessionID: "s", ErrorContext: "card declined loop", Keywords: []string{"payments"},
	})
	require.NoError(t, err)

	var got RiskReport
	read(t, h.HandleRisks, RisksURI, &got)
	require.Len(t, got.Risks, 1)
	assert.Equal(t, store.IDList{rec.LandmineID}, got.Risks[0].LandmineIDs)
	assert.Empty(t, got.Dangling)

	require.NoError(t, s.DeleteTask(ctx, taskID))
	read(t, h.HandleRisks, RisksURI, &got)
	assert.Equal(t, []risk.DanglingRef{{Keyword: "payments", LandmineID: rec.LandmineID}}, got.Dangling)
}
