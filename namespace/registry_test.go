package namespace

import (
	"fmt"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/blueprint/document"
	"github.com/c360/blueprint/metadata"
)

// stubHandler is a minimal Handler for registry tests.
type stubHandler struct {
	name    string
	managed []ClassRef
}

func (s *stubHandler) SchemaLocation(string) *url.URL { return nil }
func (s *stubHandler) ManagedClasses() []ClassRef     { return s.managed }

func (s *stubHandler) Parse(_ *document.Element, _ ParserContext) (metadata.Metadata, error) {
	return nil, fmt.Errorf("not implemented")
}

func (s *stubHandler) Decorate(
	_ *document.Element, comp *metadata.Component, _ ParserContext,
) (*metadata.Component, error) {
	return comp, nil
}

func TestRegistryRegisterLookup(t *testing.T) {
	reg := NewRegistry()
	h := &stubHandler{name: "h1"}

	require.NoError(t, reg.Register(h, "urn:test"))

	got, ok := reg.Lookup("urn:test")
	require.True(t, ok)
	assert.Same(t, h, got)
}

func TestRegistryLookupNotFound(t *testing.T) {
	reg := NewRegistry()
	got, ok := reg.Lookup("urn:absent")
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestRegistryLastRegisteredWins(t *testing.T) {
	reg := NewRegistry()
	first := &stubHandler{name: "first"}
	second := &stubHandler{name: "second"}

	require.NoError(t, reg.Register(first, "urn:test"))
	require.NoError(t, reg.Register(second, "urn:test"))

	got, ok := reg.Lookup("urn:test")
	require.True(t, ok)
	assert.Same(t, second, got)
}

func TestRegistryMultipleNamespaces(t *testing.T) {
	reg := NewRegistry()
	h := &stubHandler{name: "multi"}

	require.NoError(t, reg.Register(h, "urn:a", "urn:b"))

	for _, ns := range []string{"urn:a", "urn:b"} {
		got, ok := reg.Lookup(ns)
		require.True(t, ok, "namespace %s", ns)
		assert.Same(t, h, got)
	}
	assert.ElementsMatch(t, []string{"urn:a", "urn:b"}, reg.Namespaces())
}

func TestRegistryDeregister(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&stubHandler{}, "urn:test"))

	reg.Deregister("urn:test")

	_, ok := reg.Lookup("urn:test")
	assert.False(t, ok)
}

func TestRegistryValidation(t *testing.T) {
	reg := NewRegistry()

	assert.Error(t, reg.Register(nil, "urn:test"))
	assert.Error(t, reg.Register(&stubHandler{}))
	assert.Error(t, reg.Register(&stubHandler{}, ""))
}

func TestRegistryConcurrentLookups(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&stubHandler{}, "urn:test"))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if i%4 == 0 {
					_ = reg.Register(&stubHandler{}, "urn:test")
				} else {
					_, _ = reg.Lookup("urn:test")
				}
			}
		}(i)
	}
	wg.Wait()

	_, ok := reg.Lookup("urn:test")
	assert.True(t, ok)
}
