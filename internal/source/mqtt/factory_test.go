package mqtt

import (
	"testing"

	"github.com/google/uuid"
)

func TestFactoryRequiresBroker(t *testing.T) {
	factory := NewFactory()

	_, err := factory(uuid.New(), map[string]string{
		"topic": "logs/app",
	}, nil)
	if err == nil {
		t.Fatal("expected error when broker is missing")
	}
}

func TestFactoryRequiresTopic(t *testing.T) {
	factory := NewFactory()

	_, err := factory(uuid.New(), map[string]string{
		"broker": "tcp://localhost:1883",
	}, nil)
	if err == nil {
		t.Fatal("expected error when topic is missing")
	}
}

func TestFactoryMinimalParams(t *testing.T) {
	factory := NewFactory()
	id := uuid.New()

	adp, err := factory(id, map[string]string{
		"broker": "tcp://localhost:1883",
		"topic":  "logs/app",
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ma := adp.(*Adapter)
	if ma.cfg.ClientID != "logcore-"+id.String() {
		t.Errorf("default client_id: expected logcore-%s, got %q", id.String(), ma.cfg.ClientID)
	}
	if ma.cfg.QoS != 0 {
		t.Errorf("default qos: expected 0, got %d", ma.cfg.QoS)
	}
}

func TestFactoryCustomClientID(t *testing.T) {
	factory := NewFactory()

	adp, err := factory(uuid.New(), map[string]string{
		"broker":    "tcp://localhost:1883",
		"topic":     "logs/app",
		"client_id": "my-subscriber",
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ma := adp.(*Adapter)
	if ma.cfg.ClientID != "my-subscriber" {
		t.Errorf("client_id: expected my-subscriber, got %q", ma.cfg.ClientID)
	}
}

func TestFactoryQoSLevels(t *testing.T) {
	factory := NewFactory()

	for _, qos := range []string{"0", "1", "2"} {
		adp, err := factory(uuid.New(), map[string]string{
			"broker": "tcp://localhost:1883",
			"topic":  "logs/app",
			"qos":    qos,
		}, nil)
		if err != nil {
			t.Fatalf("qos %q: unexpected error: %v", qos, err)
		}
		ma := adp.(*Adapter)
		if want := qos[0] - '0'; ma.cfg.QoS != want {
			t.Errorf("qos %q: expected %d, got %d", qos, want, ma.cfg.QoS)
		}
	}
}

func TestFactoryInvalidQoS(t *testing.T) {
	factory := NewFactory()

	_, err := factory(uuid.New(), map[string]string{
		"broker": "tcp://localhost:1883",
		"topic":  "logs/app",
		"qos":    "3",
	}, nil)
	if err == nil {
		t.Fatal("expected error for invalid qos")
	}
}

func TestFactoryCredentials(t *testing.T) {
	factory := NewFactory()

	adp, err := factory(uuid.New(), map[string]string{
		"broker":   "tcp://localhost:1883",
		"topic":    "logs/app",
		"username": "alice",
		"password": "secret",
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ma := adp.(*Adapter)
	if ma.cfg.Username != "alice" {
		t.Errorf("username: expected alice, got %q", ma.cfg.Username)
	}
	if ma.cfg.Password != "secret" {
		t.Errorf("password: expected secret, got %q", ma.cfg.Password)
	}
}

func TestParseQoS(t *testing.T) {
	cases := []struct {
		in      string
		want    byte
		wantErr bool
	}{
		{"", 0, false},
		{"0", 0, false},
		{"1", 1, false},
		{"2", 2, false},
		{"3", 0, true},
		{"bogus", 0, true},
	}
	for _, c := range cases {
		got, err := parseQoS(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("parseQoS(%q): expected error", c.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseQoS(%q): unexpected error: %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("parseQoS(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}
