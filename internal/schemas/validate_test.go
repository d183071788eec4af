package schemas

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePhraseBatch(t *testing.T) {
	valid := []byte(`{"phrases": [{"phrase": "Hello World", "explanation": "a greeting"}]}`)
	require.NoError(t, Validate(PhraseBatch, valid))

	missing := []byte(`{"phrases": [{"phrase": "Hello World"}]}`)
	err := Validate(PhraseBatch, missing)
	require.Error(t, err)

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, PhraseBatch, validationErr.Schema)
	assert.NotEmpty(t, validationErr.Errors)

	empty := []byte(`{"phrases": []}`)
	assert.Error(t, Validate(PhraseBatch, empty), "empty batches should fail")
}

func TestValidateProductOptions(t *testing.T) {
	valid := []byte(`{"options": [{
		"apparel_type": "unisex tee",
		"colors": ["black", "white"],
		"sizes": ["S", "M", "L"],
		"placements": [{"area": "front", "width_in": 10, "offset_in": 0}],
		"rationale": "classic placement"
	}]}`)
	require.NoError(t, Validate(ProductOptions, valid))

	badArea := []byte(`{"options": [{
		"apparel_type": "unisex tee",
		"colors": ["black"],
		"sizes": ["M"],
		"placements": [{"area": "collar", "width_in": 10, "offset_in": 0}]
	}]}`)
	assert.Error(t, Validate(ProductOptions, badArea), "unknown placement area should fail")
}

func TestValidateListingOptions(t *testing.T) {
	valid := []byte(`{"options": [{
		"title": "Funny Cat Shirt",
		"description": "<p>A shirt.</p>",
		"tags": ["cat", "funny"]
	}]}`)
	require.NoError(t, Validate(ListingOptions, valid))

	noTags := []byte(`{"options": [{"title": "Shirt", "description": "x", "tags": []}]}`)
	assert.Error(t, Validate(ListingOptions, noTags))
}

func TestValidateDesignConcepts(t *testing.T) {
	valid := []byte(`{"concepts": [{"image_url": "https://cdn.example.com/a.png", "seed": 42}]}`)
	require.NoError(t, Validate(DesignConcepts, valid))

	notJSON := []byte(`not even json`)
	assert.Error(t, Validate(DesignConcepts, notJSON))
}

func TestValidateUnknownSchema(t *testing.T) {
	err := Validate("nope", []byte(`{}`))
	require.Error(t, err)
}
