package registry

import (
	"fmt"

	"github.com/ValentinKolb/xdb/lib/record"
)

// Field names of a server record.
const (
	FieldLabel     = "label"
	FieldNode      = "node"
	FieldIP        = "ip"
	FieldPort      = "port"
	FieldAccessKey = "accessKey"
)

const (
	maxLabelLength = 128
	maxNodeLength  = 40
	maxPort        = 65535
)

// Server is one entry of the registry.
type Server struct {
	ID        string `json:"_id,omitempty"`
	Label     string `json:"label"`
	Node      string `json:"node"`
	IP        string `json:"ip"`
	Port      int    `json:"port"`
	AccessKey string `json:"accessKey"`
}

// Validate checks the limits of the user supplied fields.
func (s *Server) Validate() error {
	if err := validateField(FieldPort, s.Port); err != nil {
		return err
	}
	if err := validateField(FieldNode, s.Node); err != nil {
		return err
	}
	return validateField(FieldLabel, s.Label)
}

// validateField checks a single field value. Fields without limits pass.
func validateField(field string, value any) error {
	if v, ok := value.(record.Value); ok {
		value = v.Interface()
	}
	switch field {
	case FieldPort:
		port, ok := toInt(value)
		if !ok {
			return fmt.Errorf("invalid port %v", value)
		}
		if port <= 0 || port > maxPort {
			return fmt.Errorf("invalid port %d", port)
		}
	case FieldNode, FieldLabel:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%s must be a string", field)
		}
		limit := maxLabelLength
		if field == FieldNode {
			limit = maxNodeLength
		}
		if len(s) > limit {
			return fmt.Errorf("%s too long (max %d chars allowed)", field, limit)
		}
	case FieldIP, FieldAccessKey:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("%s must be a string", field)
		}
	}
	return nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

// fields converts the server into record fields (without the id).
func (s *Server) fields() []record.Field {
	return []record.Field{
		record.F(FieldLabel, s.Label),
		record.F(FieldNode, s.Node),
		record.F(FieldIP, s.IP),
		record.F(FieldPort, s.Port),
		record.F(FieldAccessKey, s.AccessKey),
	}
}

// fromRecord converts a stored record into a Server. Missing or mistyped
// fields are left empty.
func fromRecord(r *record.Record) Server {
	str := func(name string) string {
		v, _ := r.Get(name)
		s, _ := v.AsString()
		return s
	}
	port, _ := r.Get(FieldPort)
	n, _ := port.AsNumber()

	return Server{
		ID:        r.ID(),
		Label:     str(FieldLabel),
		Node:      str(FieldNode),
		IP:        str(FieldIP),
		Port:      int(n),
		AccessKey: str(FieldAccessKey),
	}
}
