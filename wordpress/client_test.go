package wordpress

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockInvoker records the last invocation and replies with a canned payload
type mockInvoker struct {
	input   *lambda.InvokeInput
	payload string
	funcErr *string
	err     error
}

func (m *mockInvoker) Invoke(ctx context.Context, in *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
	m.input = in
	if m.err != nil {
		return nil, m.err
	}
	return &lambda.InvokeOutput{Payload: []byte(m.payload), FunctionError: m.funcErr}, nil
}

func TestNewLambdaFetcherRequiresFunction(t *testing.T) {
	if _, err := NewLambdaFetcher("", WithInvoker(&mockInvoker{})); err == nil {
		t.Error("expected error for empty function name")
	}
	if _, err := NewLambdaFetcher("fetcher"); err == nil {
		t.Error("expected error without invoker")
	}
}

func TestLambdaFetcherSendsTargetedPayload(t *testing.T) {
	inv := &mockInvoker{payload: `{"slug":"about","bodyHtml":"<p>hi</p>","images":[]}`}
	f, err := NewLambdaFetcher("wp-fetcher", WithInvoker(inv))
	require.NoError(t, err)

	resp, err := f.Fetch(context.Background(), PagePayload{Path: "about"})
	require.NoError(t, err)
	assert.Equal(t, TargetPage, resp.Target())

	assert.Equal(t, "wp-fetcher", aws.ToString(inv.input.FunctionName))
	var sent map[string]any
	require.NoError(t, json.Unmarshal(inv.input.Payload, &sent))
	assert.Equal(t, map[string]any{"target": "page", "path": "about"}, sent)
}

func TestLambdaFetcherErrors(t *testing.T) {
	tests := []struct {
		name string
		inv  *mockInvoker
		want error
	}{
		{"invalid page", &mockInvoker{payload: `{"error":"rest_post_invalid_page_number"}`}, ErrNotFound},
		{"other upstream error", &mockInvoker{payload: `{"error":"boom"}`}, ErrUpstream},
		{"function error", &mockInvoker{payload: `{"errorMessage":"crash"}`, funcErr: aws.String("Unhandled")}, ErrUpstream},
		{"wrong shape", &mockInvoker{payload: `[]`}, ErrShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewLambdaFetcher("wp-fetcher", WithInvoker(tt.inv))
			require.NoError(t, err)
			_, err = f.Fetch(context.Background(), BlogListPayload{Page: 9})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLambdaFetcherInvokeFailure(t *testing.T) {
	boom := errors.New("throttled")
	f, err := NewLambdaFetcher("wp-fetcher", WithInvoker(&mockInvoker{err: boom}))
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), CategoryPayload{Page: 1})
	assert.ErrorIs(t, err, boom)
}

func TestLambdaFetcherRejectsInvalidPayload(t *testing.T) {
	inv := &mockInvoker{}
	f, err := NewLambdaFetcher("wp-fetcher", WithInvoker(inv))
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), PagePayload{})
	assert.ErrorIs(t, err, ErrShape)
	assert.Nil(t, inv.input, "fetcher must not be invoked with an invalid payload")
}
