package nswatch

import (
	"context"
	"time"

	"go.etcd.io/etcd/api/v3/v3rpc/rpctypes"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/ceyewan/stufflog/clog"
	"github.com/ceyewan/stufflog/nsfilter"
	"github.com/ceyewan/stufflog/xerrors"
)

// EtcdClient 是 WatchEtcd 需要的 clientv3 子集，*clientv3.Client 直接满足
type EtcdClient interface {
	Get(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error)
	Watch(ctx context.Context, key string, opts ...clientv3.OpOption) clientv3.WatchChan
}

// WatchEtcd 读取 key 的当前值并应用，然后在后台监听：
// PUT 重新应用新值，DELETE 清空注册表。watch 断开后按重连间隔从上次的 revision 继续。
func WatchEtcd(ctx context.Context, client EtcdClient, key string, reg *nsfilter.Registry, logger clog.Logger, opts ...Option) error {
	if client == nil || reg == nil {
		return xerrors.Config("etcd client and registry are required")
	}
	if key == "" {
		return xerrors.Config("etcd key is required")
	}
	if logger == nil {
		logger = clog.Discard()
	}
	o := applyOptions(opts)

	rev, err := syncEtcd(ctx, client, key, reg)
	if err != nil {
		return err
	}

	w := &etcdWatcher{client: client, key: key, reg: reg, logger: logger, retry: o.retryInterval, lastRev: rev}
	go w.run(ctx)
	return nil
}

// syncEtcd 读取并应用 key 的当前值，返回读取时的 revision
func syncEtcd(ctx context.Context, client EtcdClient, key string, reg *nsfilter.Registry) (int64, error) {
	resp, err := client.Get(ctx, key)
	if err != nil {
		return 0, xerrors.Wrapf(err, "get %s", key)
	}

	value := ""
	if len(resp.Kvs) > 0 {
		value = string(resp.Kvs[0].Value)
	}
	if err := Apply(reg, value); err != nil {
		return 0, xerrors.Wrapf(err, "apply %s", key)
	}

	var rev int64
	if resp.Header != nil {
		rev = resp.Header.Revision
	}
	return rev, nil
}

type etcdWatcher struct {
	client  EtcdClient
	key     string
	reg     *nsfilter.Registry
	logger  clog.Logger
	retry   time.Duration
	lastRev int64
}

func (w *etcdWatcher) run(ctx context.Context) {
	for {
		w.watchOnce(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.retry):
			w.logger.Warn("retrying namespace watch",
				clog.String("key", w.key),
				clog.Int64("from_revision", w.lastRev+1))
		}
	}
}

// watchOnce 消费一个 watch 通道直到它关闭或出错
func (w *etcdWatcher) watchOnce(ctx context.Context) {
	var opts []clientv3.OpOption
	if w.lastRev > 0 {
		opts = append(opts, clientv3.WithRev(w.lastRev+1))
	}
	watchCh := w.client.Watch(ctx, w.key, opts...)

	for {
		select {
		case <-ctx.Done():
			return
		case resp, ok := <-watchCh:
			if !ok {
				w.logger.Warn("namespace watch channel closed", clog.String("key", w.key))
				return
			}
			if err := resp.Err(); err != nil {
				if xerrors.Is(err, rpctypes.ErrCompacted) {
					w.resync(ctx)
					return
				}
				w.logger.Error("namespace watch error", clog.String("key", w.key), clog.Error(err))
				return
			}
			for _, ev := range resp.Events {
				w.handle(ev)
			}
		}
	}
}

func (w *etcdWatcher) handle(ev *clientv3.Event) {
	if ev.Kv != nil && ev.Kv.ModRevision > w.lastRev {
		w.lastRev = ev.Kv.ModRevision
	}

	value := ""
	if ev.Type == clientv3.EventTypePut && ev.Kv != nil {
		value = string(ev.Kv.Value)
	}
	if err := Apply(w.reg, value); err != nil {
		w.logger.Warn("failed to apply namespace patterns", clog.String("key", w.key), clog.Error(err))
		return
	}
	w.logger.Info("namespace patterns updated",
		clog.String("key", w.key),
		clog.String("event", ev.Type.String()),
		clog.Any("patterns", w.reg.Patterns()))
}

// resync 在 revision 被压缩后重新读取当前值
func (w *etcdWatcher) resync(ctx context.Context) {
	w.logger.Warn("namespace watch revision compacted, resyncing", clog.String("key", w.key))
	rev, err := syncEtcd(ctx, w.client, w.key, w.reg)
	if err != nil {
		w.logger.Error("failed to resync namespace patterns", clog.String("key", w.key), clog.Error(err))
		return
	}
	w.lastRev = rev
}
