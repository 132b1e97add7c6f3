// Package snapshot кодирует снимок корзины, встраиваемый в заказ.
//
// Блоб имеет вид "<tag>:<payload>", где tag — версия формата. Писатель всегда использует
// одну версию, читатель понимает все известные, поэтому старые заказы остаются читаемыми
// после смены формата.
package snapshot

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

// Version — тег формата снимка.
type Version string

const (
	// VersionJSON — исходный текстовый формат.
	VersionJSON Version = "v1"
	// VersionWire — компактный формат в protobuf wire encoding.
	VersionWire Version = "v2"

	// DefaultVersion используется писателем, если версия не задана явно.
	DefaultVersion = VersionWire

	tagSeparator = ':'
)

var (
	// ErrCorrupt — блоб не удалось разобрать.
	ErrCorrupt = errors.New("cart snapshot is corrupt")
	// ErrUnsupportedVersion — неизвестный тег формата.
	ErrUnsupportedVersion = errors.New("cart snapshot version is not supported")
)

type format interface {
	encode(s domain.Snapshot) ([]byte, error)
	decode(payload []byte) (domain.Snapshot, error)
}

var formats = map[Version]format{
	VersionJSON: jsonFormat{},
	VersionWire: wireFormat{},
}

// Codec сериализует и десериализует снимки корзины.
type Codec struct {
	writeVersion Version
}

// NewCodec создаёт кодек, пишущий в версии version (пустая строка — DefaultVersion).
func NewCodec(version Version) (*Codec, error) {
	if version == "" {
		version = DefaultVersion
	}
	if _, ok := formats[version]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, version)
	}
	return &Codec{writeVersion: version}, nil
}

// MustCodec как NewCodec, но паникует на неизвестной версии (для тестов и дефолтов).
func MustCodec(version Version) *Codec {
	c, err := NewCodec(version)
	if err != nil {
		panic(err)
	}
	return c
}

// WriteVersion возвращает версию, в которой кодек пишет новые снимки.
func (c *Codec) WriteVersion() Version {
	return c.writeVersion
}

// Encode сериализует снимок. Пустой снимок не кодируется.
func (c *Codec) Encode(s domain.Snapshot) ([]byte, error) {
	if len(s.Items) == 0 {
		return nil, domain.ErrEmptyCart
	}

	payload, err := formats[c.writeVersion].encode(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot %s: %w", c.writeVersion, err)
	}

	blob := make([]byte, 0, len(c.writeVersion)+1+len(payload))
	blob = append(blob, c.writeVersion...)
	blob = append(blob, tagSeparator)
	blob = append(blob, payload...)
	return blob, nil
}

// Decode разбирает блоб любой известной версии.
func (c *Codec) Decode(blob []byte) (domain.Snapshot, error) {
	idx := bytes.IndexByte(blob, tagSeparator)
	if idx <= 0 {
		return domain.Snapshot{}, fmt.Errorf("%w: missing format tag", ErrCorrupt)
	}

	version := Version(blob[:idx])
	if !isVersionTag(version) {
		return domain.Snapshot{}, fmt.Errorf("%w: malformed format tag", ErrCorrupt)
	}
	f, ok := formats[version]
	if !ok {
		return domain.Snapshot{}, fmt.Errorf("%w: %q", ErrUnsupportedVersion, version)
	}

	s, err := f.decode(blob[idx+1:])
	if err != nil {
		return domain.Snapshot{}, err
	}
	if err := validate(s); err != nil {
		return domain.Snapshot{}, err
	}
	return s, nil
}

// isVersionTag проверяет форму тега: "v" и одна или несколько цифр.
func isVersionTag(v Version) bool {
	if len(v) < 2 || v[0] != 'v' {
		return false
	}
	for i := 1; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return false
		}
	}
	return true
}

func validate(s domain.Snapshot) error {
	if len(s.Items) == 0 {
		return fmt.Errorf("%w: no items", ErrCorrupt)
	}
	for i, item := range s.Items {
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item[%d] quantity %d", ErrCorrupt, i, item.Quantity)
		}
		if item.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: item[%d] negative price", ErrCorrupt, i)
		}
	}
	return nil
}
