package service

import (
	"sync"
)

// ChangeNotifier pub/sub сигналов "сайт изменился" по сайтам.
// Подписчик получает только сигнал без полезной нагрузки и сам перечитывает
// статистику через кэш: fan-out записи отделён от стоимости пересчёта.
type ChangeNotifier struct {
	mu     sync.Mutex
	subs   map[int64]map[int64]chan struct{}
	nextID int64
}

func NewChangeNotifier() *ChangeNotifier {
	return &ChangeNotifier{
		subs: make(map[int64]map[int64]chan struct{}),
	}
}

// Subscribe подписывает на сигналы сайта; cancel снимает подписку
// и закрывает канал
func (n *ChangeNotifier) Subscribe(siteID int64) (<-chan struct{}, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.subs[siteID] == nil {
		n.subs[siteID] = make(map[int64]chan struct{})
	}

	id := n.nextID
	n.nextID++

	// Буфер 1: непрочитанные сигналы схлопываются в один
	ch := make(chan struct{}, 1)
	n.subs[siteID][id] = ch

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()

		if subs, ok := n.subs[siteID]; ok {
			if _, ok := subs[id]; ok {
				delete(subs, id)
				close(ch)
			}
			if len(subs) == 0 {
				delete(n.subs, siteID)
			}
		}
	}

	return ch, cancel
}

// Publish рассылает сигнал подписчикам сайта, никогда не блокируется:
// медленный подписчик просто получит один схлопнутый сигнал
func (n *ChangeNotifier) Publish(siteID int64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ch := range n.subs[siteID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
