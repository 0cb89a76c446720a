package main

import (
	"bufio"
	"net"
	"time"
)

// handleConnection drives one connection through its entire, single-request
// lifecycle: read one line, normalize it, consult the rate limiter and the
// DataSource, write one response line, then half-close and close.
//
// Exactly one request is ever read per connection, generalizing the
// read-process-respond loop this kind of connection handler normally runs
// forever into a single pass, since this protocol's contract is one query
// per socket.
func (s *Server) handleConnection(conn net.Conn) {
	defer s.finishConnection(conn)

	remoteIP := remoteIPOf(conn)

	if s.config.ReadTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	}

	reader := bufio.NewReaderSize(conn, s.config.BufferSize)
	buf, query, err := s.readQuery(reader)
	defer func() { s.bytePool.Put(buf) }()
	if err != nil {
		s.stats.incErrors()
		return
	}
	if query == nil {
		// oversize query: no response; finishConnection closes the
		// connection on return. It still counts against the rate limit.
		s.limiter.Allow(remoteIP)
		protoErr := &ProtocolError{Reason: "query exceeds max_query_bytes"}
		s.logger.WithError(protoErr).WithField("remote_ip", remoteIP).Debug("oversize query")
		s.stats.incOversize()
		return
	}

	var response string
	switch {
	case !s.limiter.Allow(remoteIP):
		rlErr := &RateLimitError{IP: remoteIP}
		s.stats.incRateLimited()
		s.logger.WithError(rlErr).Debug("rate limit exceeded")
		response = respRateLimited

	default:
		start := time.Now()
		exists, lookupErr := s.lookup(query)
		queryDuration.Observe(time.Since(start).Seconds())
		if lookupErr != nil {
			s.logger.WithError(lookupErr).Warn("lookup failed")
			s.stats.incErrors()
			response = respError
		} else if exists {
			s.stats.incExists()
			response = respExists
		} else {
			s.stats.incNotFound()
			response = respNotFound
		}
	}

	s.writeResponse(conn, response)
}

// readQuery reads one line up to Config.MaxQueryBytes, returning the
// underlying buffer (for the caller to return to the pool once it is done
// with the query bytes) alongside the normalized query itself. It returns
// a nil query, with no error, when the line exceeds the limit before a
// '\n' is seen: the caller must close the connection without writing a
// response, since more unterminated bytes may still be arriving from the
// client.
func (s *Server) readQuery(reader *bufio.Reader) (buf, query []byte, err error) {
	buf = s.bytePool.Get(0)

	for {
		b, readErr := reader.ReadByte()
		if readErr != nil {
			return buf, nil, readErr
		}
		if b == '\n' {
			return buf, normalizeLine(buf), nil
		}
		buf = append(buf, b)
		if len(buf) > s.config.MaxQueryBytes {
			return buf, nil, nil
		}
	}
}

func (s *Server) lookup(query []byte) (bool, error) {
	if s.cache == nil {
		return s.dataSource.Contains(query)
	}

	if v, ok := s.cache.Get(query); ok {
		s.stats.incCacheHit()
		return v, nil
	}
	s.stats.incCacheMiss()

	v, err := s.dataSource.Contains(query)
	if err != nil {
		return false, err
	}
	s.cache.Put(query, v)
	return v, nil
}

func (s *Server) writeResponse(conn net.Conn, line string) {
	if s.config.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	}
	if _, err := conn.Write([]byte(line + "\n")); err != nil {
		if !isClosedConnError(err) {
			s.logger.WithError(err).Debug("write failed")
		}
		return
	}
	if cw, ok := conn.(interface{ CloseWrite() error }); ok {
		cw.CloseWrite()
	}
}

func remoteIPOf(conn net.Conn) string {
	addr := conn.RemoteAddr()
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
