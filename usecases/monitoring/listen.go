package monitoring

import (
	"net"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// CountingListener wraps l so the gauge tracks how many connections to the
// metrics endpoint are currently open.
func CountingListener(l net.Listener, open prometheus.Gauge) net.Listener {
	return &gaugedListener{Listener: l, open: open}
}

type gaugedListener struct {
	net.Listener
	open prometheus.Gauge
}

func (l *gaugedListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	l.open.Inc()
	return &gaugedConn{Conn: conn, open: l.open}, nil
}

type gaugedConn struct {
	net.Conn
	open prometheus.Gauge
	dec  sync.Once
}

// Close decrements the gauge exactly once, clients may close a connection
// as often as they like.
func (c *gaugedConn) Close() error {
	err := c.Conn.Close()
	c.dec.Do(c.open.Dec)
	return err
}
