package workspace

import (
	"context"
	"errors"
	"testing"

	"filespace/internal/domain"
	wsSvc "filespace/internal/domain/services/workspace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocuments_CreateReadReplace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	file, err := env.documents.CreateDocument(ctx, &wsSvc.CreateDocumentRequest{
		OwnerID: "u1",
		Name:    "Weekly plan",
		DocType: "note",
	})
	require.NoError(t, err)
	assert.Equal(t, "uploads/u1/my-documents/Weekly-plan.md", file.Pathname)
	require.NotNil(t, file.DocType)
	assert.Equal(t, "note", *file.DocType)
	assert.Contains(t, file.ContentType, "text/markdown")

	id := EncodeID(file.Pathname)
	doc, err := env.documents.GetDocument(ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, id, doc.ID)
	assert.Contains(t, doc.Content, "# Untitled note")

	updated, err := env.documents.ReplaceDocument(ctx, &wsSvc.ReplaceDocumentRequest{
		OwnerID: "u1",
		ID:      id,
		Content: "# Plan\n- ship it\n",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(len("# Plan\n- ship it\n")), updated.Size)

	doc, err = env.documents.GetDocument(ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, "# Plan\n- ship it\n", doc.Content)
	assert.Equal(t, "note", *doc.File.DocType)
}

func TestDocuments_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.documents.CreateDocument(ctx, &wsSvc.CreateDocumentRequest{OwnerID: "u1", Name: "x", DocType: "hologram"})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = env.documents.GetDocument(ctx, "u1", "%%%")
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = env.documents.GetDocument(ctx, "u1", EncodeID("uploads/u2/my-documents/a.md"))
	assert.True(t, errors.Is(err, domain.ErrScopeViolation))

	_, err = env.documents.GetDocument(ctx, "u1", EncodeID("uploads/u1/my-documents/missing.md"))
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestDocuments_ExplicitContentAndExtension(t *testing.T) {
	env := newTestEnv(t)
	content := `{"a":1}`

	file, err := env.documents.CreateDocument(context.Background(), &wsSvc.CreateDocumentRequest{
		OwnerID: "u1",
		Name:    "config.json",
		DocType: "data",
		Content: &content,
	})
	require.NoError(t, err)
	assert.Equal(t, "config.json", file.Name)
	assert.Equal(t, int64(len(content)), file.Size)
}
