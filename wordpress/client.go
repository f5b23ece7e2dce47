package wordpress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/rs/zerolog"
)

// Fetcher retrieves content from the upstream source.
type Fetcher interface {
	Fetch(ctx context.Context, p Payload) (Response, error)
}

// Invoker is the subset of the Lambda API used by LambdaFetcher.
type Invoker interface {
	Invoke(ctx context.Context, in *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// LambdaFetcher invokes the upstream fetcher function synchronously.
type LambdaFetcher struct {
	invoker  Invoker
	function string
	log      zerolog.Logger
}

type Option func(*LambdaFetcher)

func WithLogger(l zerolog.Logger) Option {
	return func(f *LambdaFetcher) { f.log = l }
}

func WithInvoker(inv Invoker) Option {
	return func(f *LambdaFetcher) { f.invoker = inv }
}

func NewLambdaFetcher(function string, opts ...Option) (*LambdaFetcher, error) {
	if function == "" {
		return nil, errors.New("fetcher function required")
	}
	f := &LambdaFetcher{function: function, log: zerolog.Nop()}
	for _, o := range opts {
		o(f)
	}
	if f.invoker == nil {
		return nil, errors.New("lambda invoker required")
	}
	return f, nil
}

// wireRequest adds the target discriminator to the payload parameters.
func wireRequest(p Payload) ([]byte, error) {
	params, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(params, &m); err != nil {
		return nil, err
	}
	m["target"] = string(p.Target())
	return json.Marshal(m)
}

func (f *LambdaFetcher) Fetch(ctx context.Context, p Payload) (Response, error) {
	if err := ValidatePayload(p); err != nil {
		return nil, err
	}
	body, err := wireRequest(p)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	f.log.Debug().Str("function", f.function).RawJSON("payload", body).Msg("invoking fetcher")
	out, err := f.invoker.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(f.function),
		InvocationType: types.InvocationTypeRequestResponse,
		Payload:        body,
	})
	if err != nil {
		return nil, fmt.Errorf("invoke %s: %w", f.function, err)
	}
	if out.FunctionError != nil {
		return nil, fmt.Errorf("%w: fetcher %s: %s", ErrUpstream, aws.ToString(out.FunctionError), string(out.Payload))
	}
	return DecodeFetcherResult(p.Target(), out.Payload)
}
