package main

import (
	"sync"
)

// Counter_uint64 is safe to use concurrently. sessions feed their
// byte/line counts in here and GoSpeedMeter drains the TMP_ keys.
type Counter_uint64 struct {
	m   map[string]uint64
	mux sync.Mutex
}

func NewCounter() *Counter_uint64 {
	return &Counter_uint64{m: make(map[string]uint64)}
} // end func NewCounter

func (c *Counter_uint64) incr(k string) uint64 {
	c.mux.Lock()
	c.m[k] += 1
	retval := c.m[k]
	c.mux.Unlock()
	return retval
} // end func Counter.incr

func (c *Counter_uint64) decr(k string) uint64 {
	var retval uint64
	c.mux.Lock()
	if c.m[k] > 0 {
		c.m[k] -= 1
		retval = c.m[k]
		if c.m[k] == 0 {
			delete(c.m, k)
		}
	}
	c.mux.Unlock()
	return retval
} // end func Counter.decr

func (c *Counter_uint64) add(k string, value uint64) {
	c.mux.Lock()
	c.m[k] += value
	c.mux.Unlock()
} // end func Counter.add

func (c *Counter_uint64) get(k string) uint64 {
	c.mux.Lock()
	retval := c.m[k]
	c.mux.Unlock()
	return retval
} // end func Counter.get

func (c *Counter_uint64) getReset(k string) uint64 {
	c.mux.Lock()
	retval := c.m[k]
	c.m[k] = 0
	c.mux.Unlock()
	return retval
} // end func Counter.getReset
