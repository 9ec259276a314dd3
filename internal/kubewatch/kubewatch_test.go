package kubewatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

func TestNew_OutsideClusterReturnsNilWithoutError(t *testing.T) {
	w, err := New("fedora", "repochecker-overrides", t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, w)
}

func TestHandle_WritesOverridesAndTriggersReload(t *testing.T) {
	dir := t.TempDir()
	w := &Watcher{
		clientset:     fake.NewSimpleClientset(),
		namespace:     "fedora",
		name:          "repochecker-overrides",
		overridesPath: filepath.Join(dir, "overrides.json"),
	}

	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: "repochecker-overrides", Namespace: "fedora"},
		Data:       map[string]string{"overrides.json": `{"bash":{}}`},
	}

	var reloaded bool
	w.handle(cm, func() { reloaded = true })

	assert.True(t, reloaded)
	data, err := os.ReadFile(w.overridesPath)
	require.NoError(t, err)
	assert.JSONEq(t, `{"bash":{}}`, string(data))
}

func TestHandle_IgnoresOtherConfigMaps(t *testing.T) {
	dir := t.TempDir()
	w := &Watcher{
		clientset:     fake.NewSimpleClientset(),
		namespace:     "fedora",
		name:          "repochecker-overrides",
		overridesPath: filepath.Join(dir, "overrides.json"),
	}

	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: "some-other-configmap", Namespace: "fedora"},
		Data:       map[string]string{"overrides.json": `{}`},
	}

	var reloaded bool
	w.handle(cm, func() { reloaded = true })

	assert.False(t, reloaded)
	_, err := os.Stat(w.overridesPath)
	assert.True(t, os.IsNotExist(err))
}

func TestHandle_MissingDataKeyIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	w := &Watcher{
		clientset:     fake.NewSimpleClientset(),
		namespace:     "fedora",
		name:          "repochecker-overrides",
		overridesPath: filepath.Join(dir, "overrides.json"),
	}

	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: "repochecker-overrides", Namespace: "fedora"},
		Data:       map[string]string{"other-key": "irrelevant"},
	}

	var reloaded bool
	w.handle(cm, func() { reloaded = true })
	assert.False(t, reloaded)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	w := &Watcher{
		clientset: fake.NewSimpleClientset(),
		namespace: "fedora",
		name:      "repochecker-overrides",
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := w.Run(ctx, func() {})
	assert.NoError(t, err)
}
