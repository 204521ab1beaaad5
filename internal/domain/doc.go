// Package domain models Japanese seismic and tsunami feed data and turns it
// into spoken alert text.
//
// # Data Sources
//
// Three upstream families feed the service:
//
//   - wolfx EEW (https://api.wolfx.jp): one JSON object per Earthquake Early
//     Warning update, pushed over WebSocket. Heartbeat and pong frames share the
//     stream and carry a "type" field.
//   - P2PQuake (https://api.p2pquake.net/v2): JSON objects keyed by "code".
//     551 is an earthquake bulletin, 552 a tsunami advisory. The WebSocket pushes
//     single objects; the history endpoint returns arrays, most recent first.
//   - JMA XML (https://www.data.jma.go.jp/developer/xml/feed/eqvol.xml): an Atom
//     feed whose entries link VTSE51 (tsunami information) and VXSE62
//     (long-period ground motion) documents.
//
// # Upstream Conventions
//
// Unknown values:
//
//	wolfx omits fields it does not know. P2PQuake uses -1 for unknown depth,
//	magnitude and intensity scale. Arrival times use the literal "不明".
//	Both are normalized to the Unknown sentinel or to a nil pointer.
//
// Depth:
//
//	0 means "very shallow" and is never read out as "0 km".
//
// Intensity scale codes (P2PQuake):
//
//	10, 20, 30, 40 = intensity 1-4; 45 = 5 lower; 46 = 5 lower or above
//	(estimated); 50 = 5 upper; 55 = 6 lower; 60 = 6 upper; 70 = 7.
//
// Time format:
//
//	"YYYY/MM/DD HH:MM[:SS[.fff]]" in Japan Standard Time. JMA XML uses RFC 3339.
//
// The Normalizer never guesses: a value that cannot be parsed falls back to
// the unknown form and the payload is still announced. Only a payload whose
// top-level structure is wrong is rejected with [ErrMalformedPayload].
package domain
