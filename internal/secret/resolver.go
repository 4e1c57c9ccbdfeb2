// Package secret resolves provider credentials from the environment or from
// AWS Systems Manager Parameter Store. Callers only ever ask whether a
// credential is present; its value is opaque to the core.
package secret

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ErrNotFound is returned when a credential is absent or blank.
var ErrNotFound = errors.New("secret not found")

// Resolver retrieves secret values by credential variable name (e.g. OPENAI_API_KEY).
type Resolver interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// Present reports whether name resolves to a non-blank value.
func Present(ctx context.Context, r Resolver, name string) bool {
	value, err := r.GetSecret(ctx, name)
	return err == nil && strings.TrimSpace(value) != ""
}

// EnvResolver reads credentials from environment variables.
type EnvResolver struct{}

func NewEnvResolver() Resolver {
	return &EnvResolver{}
}

func (r *EnvResolver) GetSecret(_ context.Context, name string) (string, error) {
	value := os.Getenv(name)
	if strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("environment variable %q: %w", name, ErrNotFound)
	}
	return value, nil
}

// SSMClient is the subset of *ssm.Client methods used by SSMResolver.
type SSMClient interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SSMResolver fetches SecureString parameters stored under a common prefix.
// OPENAI_API_KEY with prefix "/lab" is read from "/lab/openai-api-key".
type SSMResolver struct {
	client SSMClient
	prefix string
}

func NewSSMResolver(client SSMClient, prefix string) Resolver {
	return &SSMResolver{client: client, prefix: strings.TrimRight(prefix, "/")}
}

func (r *SSMResolver) GetSecret(ctx context.Context, name string) (string, error) {
	param := r.ParameterName(name)
	out, err := r.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(param),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("ssm get parameter %q: %w", param, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil || strings.TrimSpace(*out.Parameter.Value) == "" {
		return "", fmt.Errorf("ssm parameter %q: %w", param, ErrNotFound)
	}
	return *out.Parameter.Value, nil
}

// ParameterName maps a credential variable name to its parameter path.
func (r *SSMResolver) ParameterName(name string) string {
	return r.prefix + "/" + strings.ToLower(strings.ReplaceAll(name, "_", "-"))
}
