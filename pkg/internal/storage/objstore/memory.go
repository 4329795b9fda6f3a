package objstore

import (
	"context"
	crand "crypto/rand"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/oklog/ulid"

	"github.com/yeisme/codespace/pkg/configs"
	"github.com/yeisme/codespace/pkg/errs"
)

// FaultFunc 故障注入钩子，返回非 nil 时对应操作直接失败.
type FaultFunc func(op string, b Bucket, key string) error

// Memory 进程内对象存储，行为对齐 S3：bucket 绑定 region，开启版本控制后保留历史版本.
type Memory struct {
	mu      sync.RWMutex
	buckets map[string]*memBucket
	fault   FaultFunc
	now     func() time.Time
}

type memBucket struct {
	region     string
	versioning bool
	expiryDays int
	objects    map[string][]memVersion // 按写入顺序，最后一个为最新
}

type memVersion struct {
	id           string
	content      []byte
	contentType  string
	lastModified time.Time
	deleteMarker bool
}

// NewMemory 创建内存存储.
func NewMemory() *Memory {
	return &Memory{
		buckets: make(map[string]*memBucket),
		now:     time.Now,
	}
}

// SetFault 设置故障注入钩子，nil 表示关闭.
func (m *Memory) SetFault(f FaultFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fault = f
}

// VersioningEnabled 返回 bucket 是否开启了版本控制及过期天数.
func (m *Memory) VersioningEnabled(b Bucket) (bool, int) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bk, ok := m.buckets[b.Name]
	if !ok {
		return false, 0
	}

	return bk.versioning, bk.expiryDays
}

// BucketExists 是否存在该 bucket.
func (m *Memory) BucketExists(b Bucket) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.buckets[b.Name]

	return ok
}

func (m *Memory) injected(op string, b Bucket, key string) error {
	if m.fault == nil {
		return nil
	}

	return m.fault(op, b, key)
}

// bucket 调用方持有锁.
func (m *Memory) bucket(b Bucket) (*memBucket, error) {
	bk, ok := m.buckets[b.Name]
	if !ok {
		return nil, errs.NotFound("bucket %s not found", b.Name)
	}

	if bk.region != b.Region {
		return nil, errs.NotFound("bucket %s not found in region %s", b.Name, b.Region).
			With("actual_region", bk.region)
	}

	return bk, nil
}

func (m *Memory) CreateBucket(ctx context.Context, b Bucket) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected("create_bucket", b, ""); err != nil {
		return err
	}

	if bk, ok := m.buckets[b.Name]; ok {
		if bk.region != b.Region {
			return errs.Conflict("bucket %s already exists in region %s", b.Name, bk.region)
		}

		return nil
	}

	m.buckets[b.Name] = &memBucket{region: b.Region, objects: make(map[string][]memVersion)}

	return nil
}

func (m *Memory) DeleteBucket(ctx context.Context, b Bucket) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected("delete_bucket", b, ""); err != nil {
		return err
	}

	bk, ok := m.buckets[b.Name]
	if !ok {
		return nil
	}

	if len(bk.objects) > 0 {
		return errs.Conflict("bucket %s is not empty", b.Name)
	}

	delete(m.buckets, b.Name)

	return nil
}

func (m *Memory) ListKeys(ctx context.Context, b Bucket) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.injected("list_keys", b, ""); err != nil {
		return nil, err
	}

	bk, err := m.bucket(b)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(bk.objects))
	for key, versions := range bk.objects {
		if latest := versions[len(versions)-1]; !latest.deleteMarker {
			keys = append(keys, key)
		}
	}

	sort.Strings(keys)

	return keys, nil
}

func (m *Memory) GetObject(ctx context.Context, b Bucket, key, versionID string) (*Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.injected("get_object", b, key); err != nil {
		return nil, err
	}

	bk, err := m.bucket(b)
	if err != nil {
		return nil, err
	}

	v, err := bk.find(key, versionID)
	if err != nil {
		return nil, err
	}

	content := make([]byte, len(v.content))
	copy(content, v.content)

	return &Object{ObjectInfo: v.info(key), Content: content}, nil
}

func (m *Memory) StatObject(ctx context.Context, b Bucket, key string) (ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.injected("stat_object", b, key); err != nil {
		return ObjectInfo{}, err
	}

	bk, err := m.bucket(b)
	if err != nil {
		return ObjectInfo{}, err
	}

	v, err := bk.find(key, "")
	if err != nil {
		return ObjectInfo{}, err
	}

	return v.info(key), nil
}

func (m *Memory) PutObject(ctx context.Context, b Bucket, key string, content []byte, contentType string) (ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected("put_object", b, key); err != nil {
		return ObjectInfo{}, err
	}

	bk, err := m.bucket(b)
	if err != nil {
		return ObjectInfo{}, err
	}

	data := make([]byte, len(content))
	copy(data, content)

	v := m.put(bk, key, memVersion{content: data, contentType: contentType})

	return v.info(key), nil
}

// put 调用方持有写锁.
func (m *Memory) put(bk *memBucket, key string, v memVersion) memVersion {
	v.lastModified = m.now()

	if bk.versioning {
		v.id = ulid.MustNew(ulid.Now(), crand.Reader).String()
		bk.objects[key] = append(bk.objects[key], v)
	} else {
		v.id = "null"
		bk.objects[key] = []memVersion{v}
	}

	return v
}

func (m *Memory) DeleteObject(ctx context.Context, b Bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected("delete_object", b, key); err != nil {
		return err
	}

	bk, err := m.bucket(b)
	if err != nil {
		return err
	}

	versions, ok := bk.objects[key]
	if !ok {
		return nil
	}

	if !bk.versioning {
		delete(bk.objects, key)
		return nil
	}

	if versions[len(versions)-1].deleteMarker {
		return nil
	}

	m.put(bk, key, memVersion{deleteMarker: true})

	return nil
}

func (m *Memory) DeleteAllVersions(ctx context.Context, b Bucket) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected("delete_all_versions", b, ""); err != nil {
		return err
	}

	bk, ok := m.buckets[b.Name]
	if !ok {
		return nil
	}

	if bk.region != b.Region {
		return errs.NotFound("bucket %s not found in region %s", b.Name, b.Region)
	}

	bk.objects = make(map[string][]memVersion)

	return nil
}

func (m *Memory) CopyObject(ctx context.Context, src Bucket, srcKey string, dst Bucket, dstKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected("copy_object", src, srcKey); err != nil {
		return err
	}

	sb, err := m.bucket(src)
	if err != nil {
		return err
	}

	dbk, err := m.bucket(dst)
	if err != nil {
		return err
	}

	v, err := sb.find(srcKey, "")
	if err != nil {
		return err
	}

	data := make([]byte, len(v.content))
	copy(data, v.content)

	m.put(dbk, dstKey, memVersion{content: data, contentType: v.contentType})

	return nil
}

func (m *Memory) EnableVersioning(ctx context.Context, b Bucket, expiryDays int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected("enable_versioning", b, ""); err != nil {
		return err
	}

	bk, err := m.bucket(b)
	if err != nil {
		return err
	}

	bk.versioning = true
	bk.expiryDays = expiryDays

	return nil
}

func (m *Memory) ListVersions(ctx context.Context, b Bucket, key string, limit int) ([]VersionInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.injected("list_versions", b, key); err != nil {
		return nil, err
	}

	bk, err := m.bucket(b)
	if err != nil {
		return nil, err
	}

	versions := bk.objects[key]
	out := make([]VersionInfo, 0, len(versions))

	// 与 S3 一致：最新版本在前
	for i := len(versions) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}

		v := versions[i]
		out = append(out, VersionInfo{
			Key:            key,
			VersionID:      v.id,
			Size:           int64(len(v.content)),
			IsLatest:       i == len(versions)-1,
			IsDeleteMarker: v.deleteMarker,
			LastModified:   v.lastModified,
		})
	}

	return out, nil
}

func (m *Memory) Health(ctx context.Context) error {
	return m.injected("health", Bucket{}, "")
}

func (m *Memory) Close() error {
	return nil
}

func (bk *memBucket) find(key, versionID string) (memVersion, error) {
	versions, ok := bk.objects[key]
	if !ok || len(versions) == 0 {
		return memVersion{}, errs.NotFound("object %s not found", key)
	}

	if versionID == "" {
		latest := versions[len(versions)-1]
		if latest.deleteMarker {
			return memVersion{}, errs.NotFound("object %s not found", key)
		}

		return latest, nil
	}

	for _, v := range versions {
		if v.id == versionID && !v.deleteMarker {
			return v, nil
		}
	}

	return memVersion{}, errs.NotFound("version %s of %s not found", versionID, key).With("version_id", versionID)
}

func (v memVersion) info(key string) ObjectInfo {
	return ObjectInfo{
		Key:          key,
		Size:         int64(len(v.content)),
		ContentType:  v.contentType,
		VersionID:    v.id,
		ETag:         strconv.FormatUint(xxhash.Sum64(v.content), 16),
		LastModified: v.lastModified,
	}
}

func init() {
	RegisterFactory("memory", func(_ context.Context, _ *configs.S3Config) (Store, error) {
		return NewMemory(), nil
	})
}
