package render

import (
	"context"
	"testing"
	"time"

	"github.com/ariefcatur/go-digital-orders/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var product = catalog.Product{
	ID:   "p1",
	Name: "Networking basics",
	Questions: []catalog.Question{
		{Question: "Port of HTTPS?", Options: []string{"80", "443"}, Correct: 1},
		{Question: "Layer of IP?", Options: []string{"2", "3"}, Correct: 1},
	},
}

func TestRenderSummary(t *testing.T) {
	out, err := New().Render(context.Background(), TemplateSummary, Data{
		PurchaseID: "pu-1",
		Product:    product,
		Amount:     "29.99",
		IssuedAt:   time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, "Networking basics")
	assert.Contains(t, s, "1. Port of HTTPS?")
	assert.Contains(t, s, "B) 443")
	assert.Contains(t, s, "29.99")
	assert.NotContains(t, s, "correct answer")
}

func TestRenderScored(t *testing.T) {
	sc := catalog.Score(product.Questions, []int{1, 0})
	out, err := New().Render(context.Background(), TemplateScored, Data{PurchaseID: "pu-1", Product: product, Score: &sc})
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, "1/2 (50%)")
	assert.Contains(t, s, "[correct]")
	assert.Contains(t, s, "[wrong]")
}

func TestRenderErrors(t *testing.T) {
	r := New()

	_, err := r.Render(context.Background(), TemplateScored, Data{Product: product})
	assert.Error(t, err)

	_, err = r.Render(context.Background(), "invoice", Data{})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Render(ctx, TemplateSummary, Data{Product: product})
	assert.ErrorIs(t, err, context.Canceled)
}
