package app

import "sync"

// ChatLimiter выстраивает сообщения одного чата в очередь: следующая команда
// обрабатывается после предыдущей. Замок чата живёт, пока его кто-то держит или ждёт.
type ChatLimiter struct {
	mu    sync.Mutex
	chats map[int64]*chatLock
}

type chatLock struct {
	sync.Mutex
	refs int
}

func NewChatLimiter() *ChatLimiter {
	return &ChatLimiter{chats: make(map[int64]*chatLock)}
}

func (l *ChatLimiter) lock(chatID int64) func() {
	l.mu.Lock()
	c, ok := l.chats[chatID]
	if !ok {
		c = &chatLock{}
		l.chats[chatID] = c
	}
	c.refs++
	l.mu.Unlock()

	c.Lock()
	return func() {
		c.Unlock()
		l.mu.Lock()
		c.refs--
		if c.refs == 0 {
			delete(l.chats, chatID)
		}
		l.mu.Unlock()
	}
}

// active — сколько чатов сейчас в обработке.
func (l *ChatLimiter) active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.chats)
}
