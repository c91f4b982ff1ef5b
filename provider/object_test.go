package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cityReport struct {
	City string `json:"city"`
	Temp int    `json:"temp"`
}

type stubProvider struct {
	lastObject ObjectRequest
	result     *ObjectResult
	err        error
}

func (s *stubProvider) Name() string { return "Stub" }

func (s *stubProvider) GenerateText(context.Context, TextRequest) (*TextResult, error) {
	return nil, errors.New("not implemented")
}

func (s *stubProvider) StreamText(context.Context, TextRequest) (*TextStream, error) {
	return nil, errors.New("not implemented")
}

func (s *stubProvider) GenerateObject(_ context.Context, req ObjectRequest) (*ObjectResult, error) {
	s.lastObject = req
	return s.result, s.err
}

func TestSchemaFor(t *testing.T) {
	schema := SchemaFor[cityReport]()
	require.NotNil(t, schema)
	assert.Equal(t, "object", schema.Type)
	_, ok := schema.Properties.Get("city")
	assert.True(t, ok)
	assert.ElementsMatch(t, []string{"city", "temp"}, schema.Required)
}

func TestGenerateObjectAs(t *testing.T) {
	stub := &stubProvider{result: &ObjectResult{
		Raw:      []byte(`{"city":"Ghent","temp":18}`),
		Usage:    &Usage{InputTokens: 10, OutputTokens: 4},
		Attempts: 1,
	}}

	got, result, err := GenerateObjectAs[cityReport](context.Background(), stub, ObjectRequest{
		TextRequest: TextRequest{ModelID: "sonar"},
	})
	require.NoError(t, err)
	assert.Equal(t, cityReport{City: "Ghent", Temp: 18}, got)
	assert.Equal(t, int64(10), result.Usage.InputTokens)
	require.NotNil(t, stub.lastObject.Schema, "schema reflected from the type")
}

func TestGenerateObjectAs_Error(t *testing.T) {
	cause := &StructuredOutputError{Provider: "Stub", Reason: ReasonUnsupported, Err: errors.New("nope")}
	stub := &stubProvider{err: cause}

	_, result, err := GenerateObjectAs[cityReport](context.Background(), stub, ObjectRequest{})
	assert.Nil(t, result)
	assert.True(t, Unsupported(err))
}

func TestDecodeObject(t *testing.T) {
	_, err := DecodeObject[cityReport](nil)
	assert.Error(t, err)

	_, err = DecodeObject[cityReport](&ObjectResult{Raw: []byte(`{"city":1}`)})
	assert.ErrorContains(t, err, "decode provider.cityReport")
}
