// Package kubewatch optionally watches a Kubernetes ConfigMap for updated
// override content, so a cluster-hosted deployment can react faster than
// the scheduler's periodic reload interval. Outside a cluster it no-ops.
package kubewatch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/informers"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/cache"
)

// Watcher watches one ConfigMap and, whenever the object is added or
// changes, writes its "overrides.json" data key to the local overrides file
// and then invokes the reload callback.
type Watcher struct {
	clientset     kubernetes.Interface
	namespace     string
	name          string
	overridesPath string
}

// New builds a Watcher talking to the in-cluster API server. It returns
// (nil, nil) — not an error — when running outside a cluster, since the
// absence of a cluster is the expected, common case for this optional
// component: rest.InClusterConfig's ErrNotInCluster is logged at debug and
// the scheduler's periodic reload remains the only trigger.
func New(namespace, name, overridesDir string) (*Watcher, error) {
	restConfig, err := rest.InClusterConfig()
	if err != nil {
		slog.Debug("kubewatch: not running in a cluster, ConfigMap watch disabled", "error", err)
		return nil, nil
	}

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("kubewatch: building clientset: %w", err)
	}

	return &Watcher{
		clientset:     clientset,
		namespace:     namespace,
		name:          name,
		overridesPath: filepath.Join(overridesDir, "overrides.json"),
	}, nil
}

// Run starts the informer and blocks until ctx is cancelled. onReload is
// invoked after each successful write of fresh override content to disk.
func (w *Watcher) Run(ctx context.Context, onReload func()) error {
	factory := informers.NewSharedInformerFactoryWithOptions(
		w.clientset, 10*time.Minute,
		informers.WithNamespace(w.namespace),
	)
	informer := factory.Core().V1().ConfigMaps().Informer()

	_, err := informer.AddEventHandler(cache.ResourceEventHandlerFuncs{
		AddFunc:    func(obj interface{}) { w.handle(obj, onReload) },
		UpdateFunc: func(_, obj interface{}) { w.handle(obj, onReload) },
	})
	if err != nil {
		return fmt.Errorf("kubewatch: registering event handler: %w", err)
	}

	factory.Start(ctx.Done())
	factory.WaitForCacheSync(ctx.Done())

	<-ctx.Done()
	return nil
}

func (w *Watcher) handle(obj interface{}, onReload func()) {
	cm, ok := obj.(*corev1.ConfigMap)
	if !ok || cm.Name != w.name {
		return
	}

	data, ok := cm.Data["overrides.json"]
	if !ok {
		slog.Warn("kubewatch: watched ConfigMap has no overrides.json key", "configmap", cm.Name)
		return
	}

	if err := os.WriteFile(w.overridesPath, []byte(data), 0o644); err != nil {
		slog.Error("kubewatch: writing overrides file from ConfigMap", "error", err, "path", w.overridesPath)
		return
	}

	slog.Info("kubewatch: wrote fresh overrides from ConfigMap, triggering reload", "configmap", cm.Name)
	onReload()
}
