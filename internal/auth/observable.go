package auth

import (
	"sync"

	"github.com/hitoshi/edumap/internal/model"
)

// Listener は認証状態の変化を受け取るコールバック。
// サインアウト時はnilが渡される。
type Listener func(user *model.User)

type subscription struct {
	id int
	fn Listener
}

// Observable は認証状態の購読者リスト。
// 通知は同期的に、登録順に行われる。
type Observable struct {
	mu       sync.Mutex
	nextID   int
	subs     []subscription
	disposed bool
}

// NewObservable は空のObservableを生成する。
func NewObservable() *Observable {
	return &Observable{}
}

// Subscribe はリスナーを登録し、登録解除用の関数を返す。
// 破棄済みの場合は何も登録せず、何もしない関数を返す。
func (o *Observable) Subscribe(fn Listener) func() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.disposed || fn == nil {
		return func() {}
	}

	o.nextID++
	id := o.nextID
	o.subs = append(o.subs, subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { o.remove(id) })
	}
}

func (o *Observable) remove(id int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i, s := range o.subs {
		if s.id == id {
			o.subs = append(o.subs[:i:i], o.subs[i+1:]...)
			return
		}
	}
}

// Notify は全リスナーを登録順に呼び出す。全リスナーの呼び出しが終わるまで戻らない。
// リスナー内での購読・解除は次回の通知から反映される。
func (o *Observable) Notify(user *model.User) {
	o.mu.Lock()
	snapshot := make([]subscription, len(o.subs))
	copy(snapshot, o.subs)
	o.mu.Unlock()

	for _, s := range snapshot {
		s.fn(cloneUser(user))
	}
}

// Len は登録中のリスナー数を返す。
func (o *Observable) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.subs)
}

// Dispose は全リスナーを解除し、以降の登録を受け付けない。
func (o *Observable) Dispose() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.subs = nil
	o.disposed = true
}

func cloneUser(u *model.User) *model.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
