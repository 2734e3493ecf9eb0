package assets

import (
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/vengine/engine/assets/loaders"
	"github.com/spaghettifunk/vengine/engine/core"
	"github.com/spaghettifunk/vengine/engine/jobs"
	"github.com/spaghettifunk/vengine/engine/scene"
)

type AssetType uint8

const (
	AssetTypeNone AssetType = iota
	AssetTypeShader
	AssetTypeModel
	AssetTypeShaderSource
)

func (t AssetType) String() string {
	switch t {
	case AssetTypeShader:
		return "shader"
	case AssetTypeModel:
		return "model"
	case AssetTypeShaderSource:
		return "shader source"
	}
	return "none"
}

type AssetInfo struct {
	Path       string
	Type       AssetType
	LastLoaded time.Time
}

// AssetManager indexes the assets directory and loads shaders and models
// out of it. Paths are slash separated and relative to the directory.
type AssetManager struct {
	root string
	fsys fs.FS

	shaders *loaders.ShaderLoader
	models  *loaders.ModelLoader

	assets map[string]AssetInfo
	mutex  sync.RWMutex

	watcher  *fsnotify.Watcher
	done     chan struct{}
	onChange func(AssetInfo)
	wg       sync.WaitGroup
}

// NewAssetManager indexes the directory at root.
func NewAssetManager(root string) (*AssetManager, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, core.WrapConfigurationError(err, "assets directory")
	}
	if !info.IsDir() {
		return nil, core.NewConfigurationError("assets path %s is not a directory", root)
	}
	am, err := NewAssetManagerFS(os.DirFS(root))
	if err != nil {
		return nil, err
	}
	am.root = root
	return am, nil
}

// NewAssetManagerFS indexes fsys. Managers built this way cannot Watch.
func NewAssetManagerFS(fsys fs.FS) (*AssetManager, error) {
	am := &AssetManager{
		fsys:    fsys,
		shaders: &loaders.ShaderLoader{FS: fsys},
		models:  &loaders.ModelLoader{FS: fsys},
		assets:  make(map[string]AssetInfo),
	}
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			am.handleFileEvent(path)
		}
		return nil
	})
	if err != nil {
		return nil, core.WrapConfigurationError(err, "indexing assets")
	}
	core.LogDebug("indexed %d assets", len(am.assets))
	return am, nil
}

// Lookup returns the index entry of path.
func (am *AssetManager) Lookup(path string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[path]
	return info, ok
}

func (am *AssetManager) LoadShader(path string) ([]uint32, error) {
	if err := am.touch(path, AssetTypeShader); err != nil {
		return nil, err
	}
	return am.shaders.Load(path)
}

func (am *AssetManager) LoadMesh(path string, flipNormals bool) (*scene.Mesh, error) {
	if err := am.touch(path, AssetTypeModel); err != nil {
		return nil, err
	}
	return am.models.Load(path, flipNormals)
}

// LoadMeshes parses the models at paths in parallel. Meshes are returned in
// the order of paths; any failure fails the whole call.
func (am *AssetManager) LoadMeshes(paths []string, flipNormals bool) ([]*scene.Mesh, error) {
	meshes := make([]*scene.Mesh, len(paths))
	tasks := make([]func() error, len(paths))
	for i, path := range paths {
		i, path := i, path
		tasks[i] = func() error {
			mesh, err := am.LoadMesh(path, flipNormals)
			if err != nil {
				return errors.Wrapf(err, "loading %s", path)
			}
			meshes[i] = mesh
			return nil
		}
	}
	if err := jobs.RunAll(runtime.NumCPU(), tasks); err != nil {
		return nil, err
	}
	return meshes, nil
}

func (am *AssetManager) touch(path string, want AssetType) error {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	asset, ok := am.assets[path]
	if !ok {
		return core.NewConfigurationError("asset not found: %s", path)
	}
	if asset.Type != want {
		return core.NewConfigurationError("asset %s is a %s, not a %s", path, asset.Type, want)
	}
	asset.LastLoaded = time.Now()
	am.assets[path] = asset
	return nil
}

// Watch reports created or modified assets to onChange until Close. Loaded
// GPU objects are not rebuilt; the callback decides what to do.
func (am *AssetManager) Watch(onChange func(AssetInfo)) error {
	if am.root == "" {
		return errors.AssertionFailedf("asset manager has no directory to watch")
	}
	if am.watcher != nil {
		return errors.AssertionFailedf("asset manager is already watching")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return core.WrapDriverError(err, "creating asset watcher")
	}
	am.watcher = w
	am.onChange = onChange
	am.done = make(chan struct{})

	if err := am.watchRecursive(am.root); err != nil {
		_ = w.Close()
		am.watcher = nil
		return err
	}

	am.wg.Add(1)
	go am.start()
	return nil
}

func (am *AssetManager) Close() error {
	if am.watcher == nil {
		return nil
	}
	close(am.done)
	am.wg.Wait()
	err := am.watcher.Close()
	am.watcher = nil
	return err
}

func (am *AssetManager) start() {
	defer am.wg.Done()
	for {
		select {
		case e, ok := <-am.watcher.Events:
			if !ok {
				return
			}
			am.handleEvent(e)
		case err, ok := <-am.watcher.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err)
		case <-am.done:
			return
		}
	}
}

func (am *AssetManager) handleEvent(e fsnotify.Event) {
	rel, err := filepath.Rel(am.root, e.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	if e.Op&fsnotify.Create != 0 {
		if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
			if err := am.watchRecursive(e.Name); err != nil {
				core.LogWarn("watching %s: %s", e.Name, err)
			}
			return
		}
	}
	if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
		if info, ok := am.handleFileEvent(rel); ok && am.onChange != nil {
			am.onChange(info)
		}
	}
	if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		am.removeAsset(rel)
	}
}

// watchRecursive adds all directories under the given one to the watch list.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.WalkDir(path, func(walkPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := am.watcher.Add(walkPath); err != nil {
				return core.WrapDriverError(err, "watching %s", walkPath)
			}
		}
		return nil
	})
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(path string) (AssetInfo, bool) {
	assetType := determineAssetType(path)
	if assetType == AssetTypeNone {
		return AssetInfo{}, false
	}
	am.mutex.Lock()
	defer am.mutex.Unlock()
	info := AssetInfo{Path: path, Type: assetType}
	if prev, ok := am.assets[path]; ok {
		info.LastLoaded = prev.LastLoaded
	}
	am.assets[path] = info
	return info, true
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	delete(am.assets, path)
}

func determineAssetType(path string) AssetType {
	switch filepath.Ext(path) {
	case ".spv":
		return AssetTypeShader
	case ".obj":
		return AssetTypeModel
	case ".rgen", ".rmiss", ".rchit", ".rahit", ".rint", ".glsl":
		return AssetTypeShaderSource
	default:
		return AssetTypeNone
	}
}
