package token

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/netomi/che-server/pkg/logging"
)

const (
	// secretNamePrefix prefixes every token secret created by the broker.
	secretNamePrefix = "personal-access-token-"

	// Labels identifying token secrets among everything else in the namespace.
	partOfLabel    = "app.kubernetes.io/part-of"
	partOfValue    = "che.eclipse.org"
	componentLabel = "app.kubernetes.io/component"
	componentValue = "scm-personal-access-token"

	// Annotations carrying token metadata.
	userIDAnnotation    = "che.eclipse.org/che-userid"
	userNameAnnotation  = "che.eclipse.org/scm-username"
	providerAnnotation  = "che.eclipse.org/scm-provider-name"
	scopeAnnotation     = "che.eclipse.org/scm-token-scope"
	tokenTypeAnnotation = "che.eclipse.org/scm-token-type"
	expiresAnnotation   = "che.eclipse.org/expires-at"

	// Secret data keys.
	tokenDataKey        = "token"
	refreshTokenDataKey = "refresh-token"
	tokenSecretDataKey  = "token-secret"
)

// KubernetesManager persists tokens as labeled Secrets in the platform
// namespace. This is the production backend for in-cluster deployments:
// tokens survive broker restarts and are readable by the workspace
// provisioner, which mounts them into workspace pods.
type KubernetesManager struct {
	client    client.Client
	namespace string
}

// NewKubernetesManager creates a token manager backed by Kubernetes Secrets.
func NewKubernetesManager(cfg *rest.Config, namespace string) (*KubernetesManager, error) {
	scheme := runtime.NewScheme()
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))

	k8sClient, err := client.New(cfg, client.Options{Scheme: scheme})
	if err != nil {
		return nil, fmt.Errorf("failed to create Kubernetes client: %w", err)
	}

	return newKubernetesManagerWithClient(k8sClient, namespace), nil
}

// newKubernetesManagerWithClient wires an existing client; used by tests.
func newKubernetesManagerWithClient(c client.Client, namespace string) *KubernetesManager {
	return &KubernetesManager{
		client:    c,
		namespace: namespace,
	}
}

// Get returns the stored token matching the provider and user key, where
// the key matches either the user id or the login name annotation.
// Returns (nil, nil) when no live token exists.
func (m *KubernetesManager) Get(ctx context.Context, provider, userKey string) (*PersonalAccessToken, error) {
	secret, err := m.findSecret(ctx, provider, userKey)
	if err != nil {
		return nil, err
	}
	if secret == nil {
		return nil, nil
	}

	t := secretToToken(secret)
	if t.IsExpired(tokenExpiryMargin) {
		return nil, nil
	}
	return t, nil
}

// Store saves a token, replacing any previous secret for the same
// (provider, user) pair.
func (m *KubernetesManager) Store(ctx context.Context, t *PersonalAccessToken) error {
	// Replace rather than update: the secret name encodes nothing, so a
	// delete+create keeps the logic identical for both paths.
	if err := m.Delete(ctx, t.Provider, t.UserID); err != nil {
		return err
	}

	secret := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      secretNamePrefix + uuid.NewString(),
			Namespace: m.namespace,
			Labels: map[string]string{
				partOfLabel:    partOfValue,
				componentLabel: componentValue,
			},
			Annotations: tokenAnnotations(t),
		},
		Data: tokenData(t),
	}

	if err := m.client.Create(ctx, secret); err != nil {
		return fmt.Errorf("failed to create token secret: %w", err)
	}

	logging.Debug("TokenStore", "Stored token secret %s for user=%s provider=%s",
		secret.Name, t.UserID, t.Provider)
	return nil
}

// Delete removes the token secret for the provider and user key. Deleting
// an absent token is not an error.
func (m *KubernetesManager) Delete(ctx context.Context, provider, userKey string) error {
	secret, err := m.findSecret(ctx, provider, userKey)
	if err != nil {
		return err
	}
	if secret == nil {
		return nil
	}

	if err := m.client.Delete(ctx, secret); err != nil {
		return fmt.Errorf("failed to delete token secret %s: %w", secret.Name, err)
	}

	logging.Debug("TokenStore", "Deleted token secret %s for user=%s provider=%s",
		secret.Name, userKey, provider)
	return nil
}

// findSecret lists the broker's token secrets and returns the one matching
// the provider and user key, or nil.
func (m *KubernetesManager) findSecret(ctx context.Context, provider, userKey string) (*corev1.Secret, error) {
	secrets := &corev1.SecretList{}
	err := m.client.List(ctx, secrets,
		client.InNamespace(m.namespace),
		client.MatchingLabels{
			partOfLabel:    partOfValue,
			componentLabel: componentValue,
		})
	if err != nil {
		return nil, fmt.Errorf("failed to list token secrets: %w", err)
	}

	for i := range secrets.Items {
		secret := &secrets.Items[i]
		ann := secret.Annotations
		if ann[providerAnnotation] != provider {
			continue
		}
		if ann[userIDAnnotation] == userKey || ann[userNameAnnotation] == userKey {
			return secret, nil
		}
	}
	return nil, nil
}

func tokenAnnotations(t *PersonalAccessToken) map[string]string {
	ann := map[string]string{
		userIDAnnotation:   t.UserID,
		providerAnnotation: t.Provider,
	}
	if t.UserName != "" {
		ann[userNameAnnotation] = t.UserName
	}
	if t.Scope != "" {
		ann[scopeAnnotation] = t.Scope
	}
	if t.TokenType != "" {
		ann[tokenTypeAnnotation] = t.TokenType
	}
	if !t.ExpiresAt.IsZero() {
		ann[expiresAnnotation] = strconv.FormatInt(t.ExpiresAt.Unix(), 10)
	}
	return ann
}

func tokenData(t *PersonalAccessToken) map[string][]byte {
	data := map[string][]byte{
		tokenDataKey: []byte(t.AccessToken),
	}
	if t.RefreshToken != "" {
		data[refreshTokenDataKey] = []byte(t.RefreshToken)
	}
	if t.TokenSecret != "" {
		data[tokenSecretDataKey] = []byte(t.TokenSecret)
	}
	return data
}

func secretToToken(secret *corev1.Secret) *PersonalAccessToken {
	ann := secret.Annotations
	t := &PersonalAccessToken{
		Provider:     ann[providerAnnotation],
		UserID:       ann[userIDAnnotation],
		UserName:     ann[userNameAnnotation],
		Scope:        ann[scopeAnnotation],
		TokenType:    ann[tokenTypeAnnotation],
		AccessToken:  string(secret.Data[tokenDataKey]),
		RefreshToken: string(secret.Data[refreshTokenDataKey]),
		TokenSecret:  string(secret.Data[tokenSecretDataKey]),
	}
	if raw := ann[expiresAnnotation]; raw != "" {
		if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
			t.ExpiresAt = time.Unix(unix, 0)
		}
	}
	return t
}
