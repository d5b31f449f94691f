package command

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"bridgelink/internal/protocol"
	"bridgelink/pkg/document"

	"github.com/fatih/color"
)

const payloadMargin = 8

var (
	okColor    = color.New(color.FgGreen)
	errColor   = color.New(color.FgRed, color.Bold)
	voidColor  = color.New(color.FgYellow)
	eventColor = color.New(color.FgCyan)
)

// printReply shows an ERR reply by code name and a DATA payload as an
// aligned key/value list.
func printReply(w io.Writer, reply protocol.Reply) {
	switch reply.Kind {
	case protocol.KindOK:
		okColor.Fprintln(w, "OK")
	case protocol.KindData:
		printPayload(w, reply.Payload)
	case protocol.KindErr:
		errColor.Fprintf(w, "Error: %s\n", reply.Code)
	case protocol.KindVoid:
		voidColor.Fprintln(w, "(no response)")
	}
}

// printPayload writes "key -------> value" lines, dashes padded so values
// line up.
func printPayload(w io.Writer, payload *document.Document) {
	keys := payload.Keys()
	longest := 0
	for _, k := range keys {
		longest = max(longest, len(k))
	}
	for _, k := range keys {
		dashes := strings.Repeat("-", longest-len(k)+payloadMargin)
		fmt.Fprintf(w, "%s %s> %s\n", k, dashes, formatValue(payload, k))
	}
}

// printUpdate writes one line per field of a pushed document.
func printUpdate(w io.Writer, at time.Time, update *document.Document) {
	stamp := at.Format("15:04:05.000000")
	for _, k := range update.Keys() {
		line := fmt.Sprintf("(%s)\t%s: \t%s", stamp, k, formatValue(update, k))
		if k == "event" {
			eventColor.Fprintln(w, line)
			continue
		}
		fmt.Fprintln(w, line)
	}
}

func formatValue(d *document.Document, key string) string {
	switch d.Kind(key) {
	case document.KindBool:
		return strconv.FormatBool(d.GetBool(key, false))
	case document.KindNumber:
		return strconv.FormatFloat(d.GetNumber(key, 0), 'g', -1, 64)
	case document.KindString:
		return d.GetString(key, "")
	case document.KindDocument:
		return d.GetDocument(key).String()
	default:
		return ""
	}
}
