package client

import "sync"

// subscribers, tek bir event türü için callback registry'si.
//
// add bir unsubscribe fonksiyonu döner — UI bileşenleri unmount olduğunda
// çağırır, callback listesi sızıntı yapmaz.
//
// emit, callback'leri lock DIŞINDA çağırır: bir callback içinden add/
// unsubscribe çağrılması deadlock yaratmaz.
type subscribers[T any] struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(T)
}

func newSubscribers[T any]() *subscribers[T] {
	return &subscribers[T]{subs: make(map[int]func(T))}
}

// add, yeni bir callback kaydeder ve kaldırma fonksiyonunu döner.
func (s *subscribers[T]) add(fn func(T)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// emit, kayıtlı tüm callback'leri çağırır.
func (s *subscribers[T]) emit(v T) {
	s.mu.Lock()
	fns := make([]func(T), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}
