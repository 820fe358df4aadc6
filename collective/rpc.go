/*
Copyright © 2024 the hillslope authors.
This file is part of hillslope.

hillslope is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

hillslope is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with hillslope.  If not, see <http://www.gnu.org/licenses/>.
*/

package collective

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/rpc"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"
)

// RPCPort specifies the default port for RPC communications.
var RPCPort = "6061"

// Contribution is the value sent by one rank for one reduction round.
// It is exported to meet RPC requirements.
type Contribution struct {
	Rank, Size int
	Round      int
	Value      float64
}

type round struct {
	values  map[int]float64
	done    chan struct{}
	result  float64
	replied int
}

// Coordinator gathers the contributions of a group of ranks in separate
// processes and returns their minimum to each of them. It should not be
// interacted with directly, but it is exported to meet RPC requirements.
type Coordinator struct {
	size int

	mu     sync.Mutex
	rounds map[int]*round

	Log logrus.FieldLogger
}

// NewCoordinator creates a coordinator for a group of size ranks.
func NewCoordinator(size int) (*Coordinator, error) {
	if size < 1 {
		return nil, fmt.Errorf("collective: group size must be >= 1, not %d", size)
	}
	return &Coordinator{
		size:   size,
		rounds: make(map[int]*round),
		Log:    logrus.StandardLogger(),
	}, nil
}

// AllreduceMin blocks until every rank has contributed to round in.Round
// and then sets out to the minimum contribution. It meets the requirements
// for use with rpc.Call.
func (c *Coordinator) AllreduceMin(in *Contribution, out *float64) error {
	c.mu.Lock()
	if in.Size != c.size {
		c.mu.Unlock()
		return fmt.Errorf("collective: rank %d expects group size %d but coordinator has %d",
			in.Rank, in.Size, c.size)
	}
	if in.Rank < 0 || in.Rank >= c.size {
		c.mu.Unlock()
		return fmt.Errorf("collective: rank %d out of range [0, %d)", in.Rank, c.size)
	}
	r, ok := c.rounds[in.Round]
	if !ok {
		r = &round{values: make(map[int]float64, c.size), done: make(chan struct{})}
		c.rounds[in.Round] = r
	}
	if _, dup := r.values[in.Rank]; dup {
		c.mu.Unlock()
		return fmt.Errorf("collective: rank %d contributed twice to round %d", in.Rank, in.Round)
	}
	r.values[in.Rank] = in.Value
	if len(r.values) == c.size {
		first := true
		for _, v := range r.values {
			if first || v < r.result {
				r.result = v
				first = false
			}
		}
		close(r.done)
		c.Log.WithFields(logrus.Fields{
			"round":  in.Round,
			"result": r.result,
		}).Debug("collective reduction complete")
	}
	c.mu.Unlock()

	<-r.done
	*out = r.result

	c.mu.Lock()
	r.replied++
	if r.replied == c.size {
		delete(c.rounds, in.Round)
	}
	c.mu.Unlock()
	return nil
}

// Serve serves c over HTTP on l until l is closed.
func Serve(l net.Listener, c *Coordinator) error {
	srv := rpc.NewServer()
	if err := srv.Register(c); err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle(rpc.DefaultRPCPath, srv)
	return http.Serve(l, mux)
}

// Listen directs the coordinator to start listening for contributions
// over port.
func Listen(c *Coordinator, port string) error {
	l, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return err
	}
	c.Log.WithFields(logrus.Fields{
		"port": port,
		"size": c.size,
	}).Info("started collective coordinator")
	return Serve(l, c)
}

// RPCCommunicator is a Communicator whose reductions are performed by a
// Coordinator in another process.
type RPCCommunicator struct {
	client     *rpc.Client
	rank, size int
	round      int
}

// Dial connects rank to the coordinator at addr ("host:port") of a group
// of size ranks. The connection is retried with exponential backoff until
// it succeeds or ctx is done, since the coordinator may still be starting.
func Dial(ctx context.Context, addr string, rank, size int) (*RPCCommunicator, error) {
	if rank < 0 || rank >= size {
		return nil, fmt.Errorf("collective: rank %d out of range [0, %d)", rank, size)
	}
	var client *rpc.Client
	err := backoff.RetryNotify(
		func() error {
			var err error
			client, err = rpc.DialHTTP("tcp", addr)
			return err
		},
		backoff.WithContext(backoff.NewExponentialBackOff(), ctx),
		func(err error, d time.Duration) {
			logrus.WithFields(logrus.Fields{
				"addr": addr,
				"rank": rank,
			}).Warnf("%v: retrying in %v", err, d)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("collective: dialing coordinator %s: %w", addr, err)
	}
	return &RPCCommunicator{client: client, rank: rank, size: size}, nil
}

func (c *RPCCommunicator) Rank() int { return c.rank }
func (c *RPCCommunicator) Size() int { return c.size }

// AllreduceMin implements Communicator. ctx is only checked before v is
// sent.
func (c *RPCCommunicator) AllreduceMin(ctx context.Context, v float64) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	in := &Contribution{Rank: c.rank, Size: c.size, Round: c.round, Value: v}
	c.round++
	var out float64
	if err := c.client.Call("Coordinator.AllreduceMin", in, &out); err != nil {
		return 0, fmt.Errorf("collective: round %d: %w", in.Round, err)
	}
	return out, nil
}

// Close closes the connection to the coordinator.
func (c *RPCCommunicator) Close() error {
	return c.client.Close()
}
