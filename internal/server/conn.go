package server

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"github.com/chandrudp29/omniscidb/internal/logger"
)

type conn struct {
	server *Server
	conn   net.Conn
}

// serve reads terminator-delimited requests off the connection until ctx is
// done or the connection is closed, dispatching each to the server's
// Dispatcher and writing back a length-prefixed response frame.
//
// Grounded on the teacher's internal/server.conn.serve: the select-on-ctx
// accept/read loop is identical in shape; the frame it reads and writes
// changed from RPC fragment headers to this protocol's terminator-delimited
// request / length-prefixed response framing.
func (c *conn) serve(ctx context.Context) {
	defer c.conn.Close()
	logger.Debug("server: new connection from %s", c.conn.RemoteAddr())

	reader := bufio.NewReader(c.conn)
	for {
		select {
		case <-ctx.Done():
			return
		default:
			if err := c.handleRequest(ctx, reader); err != nil {
				if err != io.EOF {
					logger.Debug("server: error handling request: %v", err)
				}
				return
			}
		}
	}
}

func (c *conn) handleRequest(ctx context.Context, reader *bufio.Reader) error {
	request, err := readFrame(reader, c.server.config.Terminator)
	if err != nil {
		return err
	}

	response, err := c.server.dispatcher.Dispatch(ctx, request)
	if err != nil {
		response = "ERROR " + err.Error()
	}

	return writeFrame(c.conn, response)
}

// readFrame reads bytes up to and including terminator, returning the
// request with the terminator stripped.
func readFrame(reader *bufio.Reader, terminator byte) (string, error) {
	line, err := reader.ReadString(terminator)
	if err != nil {
		return "", err
	}
	if n := len(line); n > 0 && line[n-1] == terminator {
		line = line[:n-1]
	}
	return line, nil
}

// writeFrame writes payload as a single length-prefixed response frame: a
// 4-byte big-endian length followed by the payload bytes.
func writeFrame(w io.Writer, payload string) error {
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("server: writing frame header: %w", err)
	}
	if _, err := io.WriteString(w, payload); err != nil {
		return fmt.Errorf("server: writing frame payload: %w", err)
	}
	return nil
}
