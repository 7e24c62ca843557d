package dbus

import (
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/presence/internal/model"
)

// EmitStatus emits the Status signal.
func (s *PresenceServer) EmitStatus(status model.Status) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return errors.New("not connected to D-Bus")
	}

	if err := conn.Emit(ObjectPath, Interface+"."+StatusMember, status.OK, status.Msg); err != nil {
		return fmt.Errorf("failed to emit Status signal: %w", err)
	}

	s.logger.Debug("emitted Status signal", "ok", status.OK, "msg", status.Msg)
	return nil
}

// statusMatch returns the match options selecting Status signals.
func statusMatch() []dbus.MatchOption {
	return []dbus.MatchOption{
		dbus.WithMatchObjectPath(ObjectPath),
		dbus.WithMatchInterface(Interface),
		dbus.WithMatchMember(StatusMember),
	}
}

// parseStatusSignal converts a received Status signal. Returns false for
// other signals or a malformed body.
func parseStatusSignal(sig *dbus.Signal) (model.Status, bool) {
	if sig == nil || sig.Name != Interface+"."+StatusMember {
		return model.Status{}, false
	}
	if len(sig.Body) < 2 {
		return model.Status{}, false
	}
	ok, isBool := sig.Body[0].(bool)
	msg, isString := sig.Body[1].(string)
	if !isBool || !isString {
		return model.Status{}, false
	}
	return model.NewStatus(ok, msg), true
}
