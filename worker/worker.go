// Package worker joins a distributed Beal sieve search: it claims single-a
// partitions from a manager, sweeps them locally and submits the survivors.
package worker

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"

	"github.com/BealFoundation/BealSearch/manager"
	"github.com/BealFoundation/BealSearch/search"
	"github.com/BealFoundation/BealSearch/sieve"
)

const dialTimeout = 10 * time.Second

// tableCacheSize bounds how many residue tables a worker keeps across work
// specs. Tables for the default moduli run to hundreds of MiB each, so this
// also bounds worst-case memory.
const tableCacheSize = 16

// Config points a worker at its manager.
type Config struct {
	Manager string        // manager address, host:port
	Poll    time.Duration // wait between polls of a drained manager
}

// Worker pulls partitions from the manager until aborted. Residue tables
// are cached per modulus, so a re-spec with an overlapping moduli list or
// a reconnect never rebuilds a table the worker already has.
type Worker struct {
	cfg    Config
	id     string
	conn   net.Conn
	reader *bufio.Reader
	reqID  uint64

	tables *lru.Cache // modulus -> *sieve.Table
	srch   *search.Search

	log log.Logger
}

// New returns an idle worker with a fresh identity; call Run to join the
// search.
func New(cfg Config) (*Worker, error) {
	if cfg.Manager == "" {
		return nil, errors.New("worker: manager address required")
	}
	if cfg.Poll <= 0 {
		cfg.Poll = 10 * time.Second
	}
	cache, err := lru.New(tableCacheSize)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	return &Worker{
		cfg:    cfg,
		id:     id,
		tables: cache,
		log:    log.New("worker", id[:8]),
	}, nil
}

// Run claims and sweeps partitions until the abort channel fires. A lost
// connection triggers a reconnect, a drained manager is polled.
func (w *Worker) Run(abort <-chan struct{}) error {
	defer w.disconnect()
	for {
		select {
		case <-abort:
			return nil
		default:
		}

		if w.conn == nil {
			if err := w.connect(); err != nil {
				w.log.Warn("Manager unreachable, retrying", "addr", w.cfg.Manager, "err", err)
				if !w.sleep(abort) {
					return nil
				}
				continue
			}
		}

		spec, ok, err := w.getWork()
		if err != nil {
			w.log.Warn("Connection lost, reconnecting", "err", err)
			w.disconnect()
			continue
		}
		if !ok {
			w.log.Debug("No work available, waiting")
			if !w.sleep(abort) {
				return nil
			}
			continue
		}

		hits, err := w.process(spec, abort)
		if errors.Is(err, search.ErrAborted) {
			return nil
		}
		if err != nil {
			return err
		}

		var accepted bool
		if err := w.call("beal_submitWork", manager.Submission{A: spec.A, Hits: hits}, &accepted); err != nil {
			w.log.Warn("Submission failed, reconnecting", "a", spec.A, "err", err)
			w.disconnect()
			continue
		}
		w.log.Info("Partition swept", "a", spec.A, "hits", len(hits), "accepted", accepted)
	}
}

// process sweeps one partition with a driver matching the spec.
func (w *Worker) process(spec manager.WorkSpec, abort <-chan struct{}) ([]sieve.Point, error) {
	s, err := w.ensureSearch(spec)
	if err != nil {
		return nil, err
	}
	return s.Sweep(spec.A, abort)
}

// ensureSearch returns a driver for spec, rebuilding only when the spec
// changed and reusing cached tables wherever the moduli overlap.
func (w *Worker) ensureSearch(spec manager.WorkSpec) (*search.Search, error) {
	if w.srch != nil {
		if w.srch.MaxBase() == spec.MaxBase && w.srch.MaxPow() == spec.MaxPow &&
			equalModuli(w.srch.Moduli(), spec.Moduli) {
			return w.srch, nil
		}
		w.log.Warn("Work spec changed, rebuilding driver",
			"maxb", spec.MaxBase, "maxp", spec.MaxPow, "moduli", len(spec.Moduli))
		w.srch.Close()
		w.srch = nil
	}

	tables := make([]*sieve.Table, len(spec.Moduli))
	for i, mod := range spec.Moduli {
		if cached, ok := w.tables.Get(mod); ok {
			t := cached.(*sieve.Table)
			if t.MaxBase() == spec.MaxBase && t.MaxPow() == spec.MaxPow {
				tables[i] = t
				continue
			}
		}
		t, err := sieve.NewTable(spec.MaxBase, spec.MaxPow, mod)
		if err != nil {
			return nil, err
		}
		w.tables.Add(mod, t)
		tables[i] = t
	}
	s, err := search.NewWithTables(spec.MaxBase, spec.MaxPow, tables)
	if err != nil {
		return nil, err
	}
	w.srch = s
	return s, nil
}

func equalModuli(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (w *Worker) connect() error {
	conn, err := net.DialTimeout("tcp", w.cfg.Manager, dialTimeout)
	if err != nil {
		return err
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.SetKeepAlive(true)
		tc.SetNoDelay(true)
	}
	w.conn = conn
	w.reader = bufio.NewReader(conn)

	var ok bool
	if err := w.call("beal_submitLogin", []string{w.id}, &ok); err != nil {
		w.disconnect()
		return err
	}
	w.log.Info("Connected to manager", "addr", w.cfg.Manager)
	return nil
}

func (w *Worker) disconnect() {
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
		w.reader = nil
	}
}

// getWork claims the next partition. ok is false when the manager has
// nothing to hand out.
func (w *Worker) getWork() (manager.WorkSpec, bool, error) {
	raw, err := w.rawCall("beal_getWork", []string{})
	if err != nil {
		return manager.WorkSpec{}, false, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return manager.WorkSpec{}, false, nil
	}
	var spec manager.WorkSpec
	if err := json.Unmarshal(raw, &spec); err != nil {
		return manager.WorkSpec{}, false, err
	}
	return spec, true, nil
}

// call performs one synchronous round trip, decoding the result into out.
func (w *Worker) call(method string, params interface{}, out interface{}) error {
	raw, err := w.rawCall(method, params)
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func (w *Worker) rawCall(method string, params interface{}) (json.RawMessage, error) {
	p, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	w.reqID++
	buf, err := json.Marshal(manager.Request{
		Id:      w.reqID,
		Jsonrpc: "2.0",
		Method:  method,
		Params:  p,
	})
	if err != nil {
		return nil, err
	}
	buf = append(buf, '\n')
	if _, err := w.conn.Write(buf); err != nil {
		return nil, err
	}

	line, err := w.reader.ReadBytes('\n')
	if err != nil {
		return nil, err
	}
	var resp struct {
		Id     uint64             `json:"id"`
		Result json.RawMessage    `json:"result"`
		Error  *manager.RespError `json:"error"`
	}
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("worker: manager error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	return resp.Result, nil
}

// sleep waits out the poll interval, returning false if aborted meanwhile.
func (w *Worker) sleep(abort <-chan struct{}) bool {
	select {
	case <-abort:
		return false
	case <-time.After(w.cfg.Poll):
		return true
	}
}
