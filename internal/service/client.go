package service

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// DefaultSendBuffer is the number of outbound frames a client may queue
const DefaultSendBuffer = 256

// DefaultTaskQueue is the number of slow handlers a client may have pending
const DefaultTaskQueue = 32

// Envelope is a websocket frame in either direction
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client is one live connection of an authenticated user.
// The transport drains Send() and stops once Done() is closed.
type Client struct {
	ID     string
	UserID string
	Name   string

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	tasks      chan func()
	workerOnce sync.Once

	// Rooms joined by this connection, guarded by Hub.mu
	rooms map[string]struct{}
}

// NewClient creates a new client
func NewClient(userID, name string) *Client {
	return &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Name:   name,
		send:   make(chan []byte, DefaultSendBuffer),
		done:   make(chan struct{}),
		tasks:  make(chan func(), DefaultTaskQueue),
		rooms:  make(map[string]struct{}),
	}
}

// Send returns the outbound frame channel
func (c *Client) Send() <-chan []byte {
	return c.send
}

// Done is closed when the client is closed
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close closes the client, safe to call more than once
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Emit queues an event without blocking.
// Returns false if the client is closed or too slow; a full buffer closes the client.
func (c *Client) Emit(event string, data interface{}) bool {
	payload, err := json.Marshal(data)
	if err != nil {
		return false
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: payload})
	if err != nil {
		return false
	}

	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- frame:
		return true
	default:
		c.Close()
		return false
	}
}

// Go queues a task on the client's worker. Tasks run one at a time in queue order.
// Returns false if the client is closed or the queue is full.
func (c *Client) Go(task func()) bool {
	c.workerOnce.Do(func() { go c.work() })

	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.tasks <- task:
		return true
	default:
		return false
	}
}

// work runs queued tasks, finishing whatever is pending once the client closes
func (c *Client) work() {
	for {
		select {
		case task := <-c.tasks:
			task()
		case <-c.done:
			for {
				select {
				case task := <-c.tasks:
					task()
				default:
					return
				}
			}
		}
	}
}
