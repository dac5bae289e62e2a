package main

import (
	"bytes"
	"compress/flate"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/gobwas/httphead"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsflate"
	"github.com/gobwas/ws/wsutil"

	"github.com/Hubmakerlabs/relayd/pkg/nostr/context"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes/enveloper"
)

// connection is a client websocket to a relay, using permessage-deflate if
// the relay agrees to it.
type connection struct {
	conn        net.Conn
	compressed  bool
	control     wsutil.FrameHandlerFunc
	reader      *wsutil.Reader
	flateReader *wsflate.Reader
	writer      *wsutil.Writer
	flateWriter *wsflate.Writer
	stateR      *wsflate.MessageState
	stateW      *wsflate.MessageState
}

func dial(c context.T, url string) (cn *connection, err error) {
	dialer := ws.Dialer{
		Header: ws.HandshakeHeaderHTTP(http.Header{
			"User-Agent": {AppName + "/" + Version},
		}),
		Extensions: []httphead.Option{wsflate.DefaultParameters.Option()},
	}
	var conn net.Conn
	var hs ws.Handshake
	if conn, _, hs, err = dialer.Dial(c, url); err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}
	cn = &connection{
		conn:   conn,
		stateR: &wsflate.MessageState{},
		stateW: &wsflate.MessageState{},
	}
	state := ws.StateClientSide
	for _, ext := range hs.Extensions {
		if string(ext.Name) == wsflate.ExtensionName {
			cn.compressed = true
			state |= ws.StateExtended
			break
		}
	}
	if cn.compressed {
		cn.stateR.SetCompressed(true)
		cn.stateW.SetCompressed(true)
		cn.flateReader = wsflate.NewReader(nil,
			func(r io.Reader) wsflate.Decompressor { return flate.NewReader(r) })
		cn.flateWriter = wsflate.NewWriter(nil,
			func(w io.Writer) wsflate.Compressor {
				fw, e := flate.NewWriter(w, 4)
				chk.E(e)
				return fw
			})
	}
	cn.control = wsutil.ControlFrameHandler(conn, ws.StateClientSide)
	cn.reader = &wsutil.Reader{
		Source:         conn,
		State:          state,
		OnIntermediate: cn.control,
		Extensions:     []wsutil.RecvExtension{cn.stateR},
	}
	cn.writer = wsutil.NewWriter(conn, state, ws.OpText)
	cn.writer.SetExtensions(cn.stateW)
	return
}

// send writes one envelope as a text message.
func (cn *connection) send(env enveloper.I) (err error) {
	data := env.Bytes()
	log.T.F("sending %s", data)
	if cn.compressed {
		cn.flateWriter.Reset(cn.writer)
		if _, err = io.Copy(cn.flateWriter, bytes.NewReader(data)); err != nil {
			return fmt.Errorf("failed to write message: %w", err)
		}
		if err = cn.flateWriter.Close(); err != nil {
			return fmt.Errorf("failed to close flate writer: %w", err)
		}
	} else if _, err = io.Copy(cn.writer, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err = cn.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush writer: %w", err)
	}
	return
}

// receive reads the next text or binary message, answering control frames on
// the way.
func (cn *connection) receive(c context.T) (msg []byte, err error) {
	if d, ok := c.Deadline(); ok {
		chk.E(cn.conn.SetReadDeadline(d))
	}
	for {
		select {
		case <-c.Done():
			return nil, c.Err()
		default:
		}
		var h ws.Header
		if h, err = cn.reader.NextFrame(); err != nil {
			return nil, fmt.Errorf("failed to advance frame: %w", err)
		}
		if h.OpCode.IsControl() {
			if err = cn.control(h, cn.reader); err != nil {
				return nil, fmt.Errorf("failed to handle control frame: %w",
					err)
			}
		} else if h.OpCode == ws.OpBinary || h.OpCode == ws.OpText {
			break
		}
		if err = cn.reader.Discard(); err != nil {
			return nil, fmt.Errorf("failed to discard: %w", err)
		}
	}
	var buf bytes.Buffer
	src := io.Reader(cn.reader)
	if cn.compressed && cn.stateR.IsCompressed() {
		cn.flateReader.Reset(cn.reader)
		src = cn.flateReader
	}
	if _, err = io.Copy(&buf, src); err != nil {
		return nil, fmt.Errorf("failed to read message: %w", err)
	}
	return buf.Bytes(), nil
}

func (cn *connection) close() error { return cn.conn.Close() }
