package events

import (
	"sync"
	"time"

	"bakery_backend/pkg/utils"
)

// Collections that publish changes.
const (
	CollectionIngredients = "ingredients"
	CollectionRecipes     = "recipes"
	CollectionSales       = "sales"
)

// Operations carried by a Change.
const (
	OpCreate  = "create"
	OpUpdate  = "update"
	OpDelete  = "delete"
	OpReplace = "replace" // whole collection replaced by an import
)

// Change describes a committed mutation of one collection.
type Change struct {
	Collection string
	Op         string
	IDs        []string
	At         time.Time
}

// Handler receives changes on the subscriber's own goroutine, in publish order.
type Handler func(Change)

// Publisher is the side of the broker the services write to.
type Publisher interface {
	Publish(change Change)
}

// Subscriber is the side of the broker the reactive components read from.
type Subscriber interface {
	Subscribe(collection string, handler Handler) func()
}

const subscriberBuffer = 64

type subscriber struct {
	id      int
	handler Handler
	queue   chan Change
	done    chan struct{}
}

// Broker fans committed changes out to subscribers per collection.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string][]*subscriber
	nextID      int
	closed      bool
	wg          sync.WaitGroup
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subscribers: make(map[string][]*subscriber)}
}

// Subscribe registers handler for one collection and returns a function that removes it.
func (b *Broker) Subscribe(collection string, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	b.nextID++
	sub := &subscriber{
		id:      b.nextID,
		handler: handler,
		queue:   make(chan Change, subscriberBuffer),
		done:    make(chan struct{}),
	}
	b.subscribers[collection] = append(b.subscribers[collection], sub)

	b.wg.Add(1)
	go b.run(sub)

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(collection, sub.id) })
	}
}

func (b *Broker) run(sub *subscriber) {
	defer b.wg.Done()
	for {
		select {
		case change, ok := <-sub.queue:
			if !ok {
				return
			}
			b.deliver(sub, change)
		case <-sub.done:
			return
		}
	}
}

func (b *Broker) deliver(sub *subscriber, change Change) {
	defer func() {
		if r := recover(); r != nil {
			utils.LogWarn("Change handler panicked", map[string]interface{}{"collection": change.Collection, "panic": r})
		}
	}()
	sub.handler(change)
}

func (b *Broker) remove(collection string, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[collection]
	for i, sub := range subs {
		if sub.id == id {
			close(sub.done)
			b.subscribers[collection] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish queues change for every subscriber of its collection without blocking.
// A subscriber whose queue is full misses the change and a warning is logged.
func (b *Broker) Publish(change Change) {
	if change.At.IsZero() {
		change.At = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	for _, sub := range b.subscribers[change.Collection] {
		select {
		case sub.queue <- change:
		default:
			utils.LogWarn("Dropping change notification, subscriber is behind", map[string]interface{}{
				"collection": change.Collection,
				"op":         change.Op,
			})
		}
	}
}

// Close stops every subscriber after it drains what is already queued.
func (b *Broker) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, subs := range b.subscribers {
		for _, sub := range subs {
			close(sub.queue)
		}
	}
	b.subscribers = make(map[string][]*subscriber)
	b.mu.Unlock()

	b.wg.Wait()
}
