package localserver

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Call sends one command to the socket at path and returns the reply data.
func Call(ctx context.Context, path, cmd string, args ...string) (json.RawMessage, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, fmt.Errorf("dial admin socket: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	line := strings.Join(append([]string{cmd}, args...), " ") + "\n"
	if _, err := conn.Write([]byte(line)); err != nil {
		return nil, err
	}

	r := bufio.NewReader(conn)
	raw, err := r.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read admin reply: %w", err)
	}
	var reply Reply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, fmt.Errorf("decode admin reply: %w", err)
	}
	if !reply.OK {
		return nil, errors.New(reply.Error)
	}
	return reply.Data, nil
}
