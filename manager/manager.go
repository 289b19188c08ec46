// Package manager distributes a Beal sieve search across remote workers.
// The search space is partitioned by outer base: one unit of work is a
// single a value, swept to exhaustion by whichever worker claims it. The
// manager speaks line-delimited JSON-RPC 2.0 over TCP and keeps re-issuing
// a partition until some worker reports it complete.
package manager

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/BealFoundation/BealSearch/sieve"
)

// Request is one JSON-RPC request line.
type Request struct {
	Id      uint64          `json:"id"`
	Jsonrpc string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is one JSON-RPC response line.
type Response struct {
	Id      uint64      `json:"id"`
	Jsonrpc string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RespError  `json:"error,omitempty"`
}

// RespError is the JSON-RPC error member.
type RespError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// WorkSpec is one unit of work: the shared search parameters plus the
// partition the claiming worker should sweep.
type WorkSpec struct {
	MaxBase uint32   `json:"maxb"`
	MaxPow  uint32   `json:"maxp"`
	Moduli  []uint32 `json:"moduli"`
	A       uint32   `json:"a"`
}

// Submission reports the sieve survivors of one swept partition.
type Submission struct {
	A    uint32        `json:"a"`
	Hits []sieve.Point `json:"hits"`
}

// Progress summarizes how far the search has come.
type Progress struct {
	Completed int     `json:"completed"`
	Pending   int     `json:"pending"`
	Percent   float64 `json:"percent"`
}

// Config describes the search a manager coordinates.
type Config struct {
	MaxBase uint32
	MaxPow  uint32
	Moduli  []uint32
	From    uint32 // first partition handed out; zero means 1
}

// Manager owns the partition queue and the accumulated survivors. All
// state is in memory; a manager restart restarts the search.
type Manager struct {
	cfg   Config
	queue *Queue

	mu   sync.Mutex
	next uint32 // next fresh partition
	hits []sieve.Point
	ln   net.Listener

	quit      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
	log       log.Logger
}

// New validates cfg and returns an idle manager; call Serve to start
// handing out partitions.
func New(cfg Config) (*Manager, error) {
	if cfg.MaxBase == 0 {
		return nil, errors.New("manager: max base must be positive")
	}
	if cfg.MaxPow <= 2 {
		return nil, fmt.Errorf("manager: max power must exceed 2, got %d", cfg.MaxPow)
	}
	if len(cfg.Moduli) == 0 {
		return nil, errors.New("manager: no sieve moduli configured")
	}
	if cfg.From == 0 {
		cfg.From = 1
	}
	if cfg.From > cfg.MaxBase {
		return nil, fmt.Errorf("manager: first partition %d beyond max base %d", cfg.From, cfg.MaxBase)
	}
	return &Manager{
		cfg:   cfg,
		queue: NewQueue(),
		next:  cfg.From,
		quit:  make(chan struct{}),
		log:   log.New("module", "manager"),
	}, nil
}

// Serve accepts worker connections on ln until Close. Each connection is
// handled by its own goroutine.
func (m *Manager) Serve(ln net.Listener) error {
	m.mu.Lock()
	m.ln = ln
	m.mu.Unlock()
	m.log.Info("Manager listening", "addr", ln.Addr(),
		"partitions", m.cfg.MaxBase-m.cfg.From+1, "moduli", len(m.cfg.Moduli))
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-m.quit:
				return nil
			default:
				return err
			}
		}
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.serve(conn)
		}()
	}
}

// Close stops accepting connections and waits for in-flight handlers.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		close(m.quit)
		m.mu.Lock()
		if m.ln != nil {
			m.ln.Close()
		}
		m.mu.Unlock()
	})
	m.wg.Wait()
}

func (m *Manager) serve(conn net.Conn) {
	defer conn.Close()
	logger := m.log.New("remote", conn.RemoteAddr())
	r := bufio.NewReader(conn)
	enc := json.NewEncoder(conn)
	for {
		select {
		case <-m.quit:
			return
		default:
		}
		line, err := r.ReadBytes('\n')
		if err != nil {
			return
		}
		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			if enc.Encode(Response{Jsonrpc: "2.0", Error: &RespError{Code: -32700, Message: "parse error"}}) != nil {
				return
			}
			continue
		}
		if enc.Encode(m.dispatch(logger, &req)) != nil {
			return
		}
	}
}

func (m *Manager) dispatch(logger log.Logger, req *Request) Response {
	resp := Response{Id: req.Id, Jsonrpc: "2.0"}
	switch req.Method {
	case "beal_submitLogin":
		var params []string
		if err := json.Unmarshal(req.Params, &params); err != nil || len(params) == 0 {
			resp.Error = &RespError{Code: -32602, Message: "login requires a worker id"}
			break
		}
		logger.Info("Worker logged in", "worker", params[0])
		resp.Result = true
	case "beal_getWork":
		if spec, ok := m.getWork(); ok {
			logger.Trace("Partition issued", "a", spec.A)
			resp.Result = spec
		}
	case "beal_submitWork":
		var sub Submission
		if err := json.Unmarshal(req.Params, &sub); err != nil {
			resp.Error = &RespError{Code: -32602, Message: "invalid submission"}
			break
		}
		resp.Result = m.submitWork(logger, sub)
	case "beal_progress":
		resp.Result = m.Progress()
	default:
		resp.Error = &RespError{Code: -32601, Message: "unknown method " + req.Method}
	}
	return resp
}

// getWork prefers opening a fresh partition; once the generator is drained
// it re-issues the oldest incomplete one, so nothing is lost to workers
// that claimed a partition and vanished.
func (m *Manager) getWork() (WorkSpec, bool) {
	m.mu.Lock()
	if m.next <= m.cfg.MaxBase {
		a := m.next
		m.next++
		m.mu.Unlock()
		m.queue.Add(a)
		return m.spec(a), true
	}
	m.mu.Unlock()
	if a, ok := m.queue.Work(); ok {
		return m.spec(a), true
	}
	return WorkSpec{}, false
}

func (m *Manager) spec(a uint32) WorkSpec {
	return WorkSpec{
		MaxBase: m.cfg.MaxBase,
		MaxPow:  m.cfg.MaxPow,
		Moduli:  m.cfg.Moduli,
		A:       a,
	}
}

// submitWork records a completed partition, reporting false on duplicates.
// Survivors are rare enough to warrant a warning each: they are sieve
// survivors only and still need exact verification.
func (m *Manager) submitWork(logger log.Logger, sub Submission) bool {
	if sub.A < m.cfg.From || sub.A > m.cfg.MaxBase {
		logger.Warn("Submission for unknown partition", "a", sub.A)
		return false
	}
	if m.queue.Complete(sub.A) {
		logger.Debug("Duplicate partition result", "a", sub.A)
		return false
	}
	if len(sub.Hits) > 0 {
		m.mu.Lock()
		m.hits = append(m.hits, sub.Hits...)
		m.mu.Unlock()
		for _, p := range sub.Hits {
			m.log.Warn("Sieve survivor reported", "a", p.A, "x", p.X, "b", p.B, "y", p.Y)
		}
	}
	logger.Trace("Partition completed", "a", sub.A, "hits", len(sub.Hits))
	return true
}

// Progress reports queue statistics and overall completion.
func (m *Manager) Progress() Progress {
	completed, pending := m.queue.Stats()
	total := int(m.cfg.MaxBase-m.cfg.From) + 1
	return Progress{
		Completed: completed,
		Pending:   pending,
		Percent:   100 * float64(completed) / float64(total),
	}
}

// Done reports whether every partition has been completed.
func (m *Manager) Done() bool {
	completed, _ := m.queue.Stats()
	return completed == int(m.cfg.MaxBase-m.cfg.From)+1
}

// Hits returns a copy of every survivor submitted so far.
func (m *Manager) Hits() []sieve.Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	hits := make([]sieve.Point, len(m.hits))
	copy(hits, m.hits)
	return hits
}
