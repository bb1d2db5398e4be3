package mexc

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// MEXC's v3 WebSocket push frames are length-delimited protobuf
// messages (PushDataV3ApiWrapper in MEXC's published schema). No
// generated .pb.go is available for this schema, so frames are walked
// directly with protowire's low-level field iterator rather than
// through generated message types.
const (
	tagChannel              = 1
	tagSymbol               = 3
	tagPublicIncreaseDepths = 302
	tagPublicMiniTicker     = 316

	tagDepthAsks        = 1
	tagDepthBids        = 2
	tagDepthFromVersion = 3
	tagDepthToVersion   = 4

	tagLevelPrice    = 1
	tagLevelQuantity = 2

	tagMiniTickerPrice = 2
)

// wrapper is the subset of PushDataV3ApiWrapper this driver reads:
// channel/symbol for frame classification, plus whichever of the two
// subscribed submessages is present.
type wrapper struct {
	channel     string
	symbol      string
	depthBytes  []byte
	haveDepth   bool
	tickerBytes []byte
	haveTicker  bool
}

// decodeWrapper walks the top-level fields of a PushDataV3ApiWrapper
// frame, extracting only the tags this driver cares about.
func decodeWrapper(b []byte) (wrapper, error) {
	var w wrapper
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return w, fmt.Errorf("mexc: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == tagChannel && typ == protowire.BytesType:
			s, m := protowire.ConsumeString(b)
			if m < 0 {
				return w, fmt.Errorf("mexc: bad channel field: %w", protowire.ParseError(m))
			}
			w.channel = s
			b = b[m:]
		case num == tagSymbol && typ == protowire.BytesType:
			s, m := protowire.ConsumeString(b)
			if m < 0 {
				return w, fmt.Errorf("mexc: bad symbol field: %w", protowire.ParseError(m))
			}
			w.symbol = s
			b = b[m:]
		case num == tagPublicIncreaseDepths && typ == protowire.BytesType:
			sub, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return w, fmt.Errorf("mexc: bad depth submessage: %w", protowire.ParseError(m))
			}
			w.depthBytes, w.haveDepth = sub, true
			b = b[m:]
		case num == tagPublicMiniTicker && typ == protowire.BytesType:
			sub, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return w, fmt.Errorf("mexc: bad ticker submessage: %w", protowire.ParseError(m))
			}
			w.tickerBytes, w.haveTicker = sub, true
			b = b[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return w, fmt.Errorf("mexc: skip field %d: %w", num, protowire.ParseError(m))
			}
			b = b[m:]
		}
	}
	return w, nil
}

type depthLevel struct {
	price, quantity string
}

type depthDelta struct {
	asks, bids             []depthLevel
	fromVersion, toVersion string
}

// decodeDepth parses a PublicIncreaseDepthsV3Api submessage: repeated
// price/quantity levels for each side plus the delta's version bounds.
func decodeDepth(b []byte) (depthDelta, error) {
	var d depthDelta
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return d, fmt.Errorf("mexc: bad depth tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == tagDepthAsks && typ == protowire.BytesType:
			sub, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return d, fmt.Errorf("mexc: bad ask level: %w", protowire.ParseError(m))
			}
			level, err := decodeLevel(sub)
			if err != nil {
				return d, err
			}
			d.asks = append(d.asks, level)
			b = b[m:]
		case num == tagDepthBids && typ == protowire.BytesType:
			sub, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return d, fmt.Errorf("mexc: bad bid level: %w", protowire.ParseError(m))
			}
			level, err := decodeLevel(sub)
			if err != nil {
				return d, err
			}
			d.bids = append(d.bids, level)
			b = b[m:]
		case num == tagDepthFromVersion && typ == protowire.BytesType:
			s, m := protowire.ConsumeString(b)
			if m < 0 {
				return d, fmt.Errorf("mexc: bad fromVersion: %w", protowire.ParseError(m))
			}
			d.fromVersion = s
			b = b[m:]
		case num == tagDepthToVersion && typ == protowire.BytesType:
			s, m := protowire.ConsumeString(b)
			if m < 0 {
				return d, fmt.Errorf("mexc: bad toVersion: %w", protowire.ParseError(m))
			}
			d.toVersion = s
			b = b[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return d, fmt.Errorf("mexc: skip depth field %d: %w", num, protowire.ParseError(m))
			}
			b = b[m:]
		}
	}
	return d, nil
}

func decodeLevel(b []byte) (depthLevel, error) {
	var l depthLevel
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return l, fmt.Errorf("mexc: bad level tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == tagLevelPrice && typ == protowire.BytesType:
			s, m := protowire.ConsumeString(b)
			if m < 0 {
				return l, fmt.Errorf("mexc: bad level price: %w", protowire.ParseError(m))
			}
			l.price = s
			b = b[m:]
		case num == tagLevelQuantity && typ == protowire.BytesType:
			s, m := protowire.ConsumeString(b)
			if m < 0 {
				return l, fmt.Errorf("mexc: bad level quantity: %w", protowire.ParseError(m))
			}
			l.quantity = s
			b = b[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return l, fmt.Errorf("mexc: skip level field %d: %w", num, protowire.ParseError(m))
			}
			b = b[m:]
		}
	}
	return l, nil
}

// decodeMiniTickerPrice extracts the last-trade price string from a
// PublicMiniTickerV3Api submessage.
func decodeMiniTickerPrice(b []byte) (string, error) {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return "", fmt.Errorf("mexc: bad miniTicker tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		if num == tagMiniTickerPrice && typ == protowire.BytesType {
			s, m := protowire.ConsumeString(b)
			if m < 0 {
				return "", fmt.Errorf("mexc: bad miniTicker price: %w", protowire.ParseError(m))
			}
			return s, nil
		}
		m := protowire.ConsumeFieldValue(num, typ, b)
		if m < 0 {
			return "", fmt.Errorf("mexc: skip miniTicker field %d: %w", num, protowire.ParseError(m))
		}
		b = b[m:]
	}
	return "", fmt.Errorf("mexc: miniTicker price field not present")
}

func levelsToRows(levels []depthLevel) [][2]string {
	rows := make([][2]string, len(levels))
	for i, l := range levels {
		rows[i] = [2]string{l.price, l.quantity}
	}
	return rows
}
