package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeywordsIncludesFullNamesAndWords(t *testing.T) {
	items := []LineItem{{MenuItemID: "-1", Name: "Chicken Vindaloo", Price: 12.5, Quantity: 1}}
	kw := Keywords("Ajanta", items)

	assert.Contains(t, kw, "ajanta")
	assert.Contains(t, kw, "chicken vindaloo")
	assert.Contains(t, kw, "chicken")
	assert.Contains(t, kw, "vindaloo")
	assert.NotContains(t, kw, "lamb")
}

func TestKeywordsDeduplicates(t *testing.T) {
	items := []LineItem{
		{Name: "Naan"},
		{Name: "Naan"},
	}
	kw := Keywords("Naan", items)
	assert.Equal(t, []string{"naan"}, kw)
}

func TestKeywordsSkipsEmpty(t *testing.T) {
	kw := Keywords("", []LineItem{{Name: "  "}})
	assert.Empty(t, kw)
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusCreatePending.IsTerminal())
	assert.False(t, StatusApproved.IsTerminal())
}
