package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/pkg/errors"

	"github.com/ijonas/omikuji/internal/logger"
)

// recoveryWindowDays is AWS Secrets Manager's soft-delete recovery window,
// per spec.md §4.1.
const recoveryWindowDays = int64(7)

// AWSStore stores keys as <prefix>/<network> secrets, tagged
// Application=omikuji, Network=<name>. Deletion uses the 7-day recovery
// window rather than force-deleting.
type AWSStore struct {
	client   *secretsmanager.Client
	prefix   string
	cacheTTL time.Duration

	mu    sync.RWMutex
	cache map[string]cachedSecret
}

func NewAWSStore(cfg AWSConfig) (*AWSStore, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awscfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, errors.Wrap(err, "loading AWS config")
	}

	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 60 * time.Second
	}

	return &AWSStore{
		client:   secretsmanager.NewFromConfig(awscfg),
		prefix:   cfg.Prefix,
		cacheTTL: ttl,
		cache:    make(map[string]cachedSecret),
	}, nil
}

func (s *AWSStore) Backend() string { return "aws_secrets" }

func (s *AWSStore) secretName(network string) string {
	if s.prefix == "" {
		return network
	}
	return fmt.Sprintf("%s/%s", s.prefix, network)
}

func (s *AWSStore) Get(ctx context.Context, network string) ([]byte, error) {
	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: awsString(s.secretName(network)),
	})
	if err != nil {
		if cached, ok := s.cachedValue(network); ok {
			logger.Warnw("aws secrets manager unreachable, serving cached key", "network", network)
			audit(s.Backend(), "get", network, true)
			return cached, nil
		}
		audit(s.Backend(), "get", network, false)
		return nil, errors.Wrapf(err, "aws secretsmanager get for network %q", network)
	}
	if out.SecretString == nil {
		audit(s.Backend(), "get", network, false)
		return nil, errors.Errorf("secret %q has no string value", s.secretName(network))
	}

	key, err := extractAWSKeyValue(*out.SecretString)
	if err != nil {
		audit(s.Backend(), "get", network, false)
		return nil, err
	}

	s.mu.Lock()
	s.cache[network] = cachedSecret{value: key, fetchedAt: time.Now()}
	s.mu.Unlock()

	audit(s.Backend(), "get", network, true)
	return key, nil
}

// extractAWSKeyValue accepts either a raw hex key or a JSON object carrying
// one of private_key|privateKey|key|value, per spec.md §4.1.
func extractAWSKeyValue(raw string) ([]byte, error) {
	var asMap map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &asMap); err != nil {
		return []byte(raw), nil
	}
	for _, field := range []string{"private_key", "privateKey", "key", "value"} {
		if v, ok := asMap[field]; ok {
			return []byte(fmt.Sprintf("%v", v)), nil
		}
	}
	return nil, errors.New("secret JSON missing private_key/privateKey/key/value field")
}

func (s *AWSStore) cachedValue(network string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cache[network]
	if !ok || time.Since(c.fetchedAt) > s.cacheTTL {
		return nil, false
	}
	return c.value, true
}

func (s *AWSStore) Put(ctx context.Context, network string, key []byte) error {
	name := s.secretName(network)
	secretString := string(key)

	_, err := s.client.UpdateSecret(ctx, &secretsmanager.UpdateSecretInput{
		SecretId:     awsString(name),
		SecretString: awsString(secretString),
	})
	if err != nil {
		_, createErr := s.client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
			Name:         awsString(name),
			SecretString: awsString(secretString),
			Tags: []types.Tag{
				{Key: awsString("Application"), Value: awsString("omikuji")},
				{Key: awsString("Network"), Value: awsString(network)},
			},
		})
		if createErr != nil {
			audit(s.Backend(), "put", network, false)
			return errors.Wrapf(createErr, "aws secretsmanager create for network %q", network)
		}
	}

	s.mu.Lock()
	s.cache[network] = cachedSecret{value: key, fetchedAt: time.Now()}
	s.mu.Unlock()
	audit(s.Backend(), "put", network, true)
	return nil
}

func (s *AWSStore) Delete(ctx context.Context, network string) error {
	_, err := s.client.DeleteSecret(ctx, &secretsmanager.DeleteSecretInput{
		SecretId:            awsString(s.secretName(network)),
		RecoveryWindowInDays: awsInt64(recoveryWindowDays),
	})
	if err != nil {
		audit(s.Backend(), "delete", network, false)
		return errors.Wrapf(err, "aws secretsmanager delete for network %q", network)
	}
	s.mu.Lock()
	delete(s.cache, network)
	s.mu.Unlock()
	audit(s.Backend(), "delete", network, true)
	return nil
}

func (s *AWSStore) List(ctx context.Context) ([]string, error) {
	var names []string
	var nextToken *string
	for {
		out, err := s.client.ListSecrets(ctx, &secretsmanager.ListSecretsInput{NextToken: nextToken})
		if err != nil {
			audit(s.Backend(), "list", "", false)
			return nil, errors.Wrap(err, "aws secretsmanager list")
		}
		for _, entry := range out.SecretList {
			if entry.Name == nil {
				continue
			}
			names = append(names, stripAWSPrefix(*entry.Name, s.prefix))
		}
		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}
	audit(s.Backend(), "list", "", true)
	return names, nil
}

func stripAWSPrefix(name, prefix string) string {
	if prefix == "" {
		return name
	}
	if len(name) > len(prefix)+1 && name[:len(prefix)] == prefix {
		return name[len(prefix)+1:]
	}
	return name
}

func awsString(s string) *string { return &s }
func awsInt64(i int64) *int64     { return &i }
