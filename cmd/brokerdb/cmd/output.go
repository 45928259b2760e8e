package cmd

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/ssargent/brokerdb/pkg/codec"
)

func printf(w io.Writer, format string, args ...interface{}) {
	_, _ = fmt.Fprintf(w, format, args...)
}

// describe renders one record as a single line
func describe(e codec.Entity) string {
	switch v := e.(type) {
	case *codec.Config:
		return fmt.Sprintf("CFG last_db_id=%d shutdown=%t dbid_size=%d", v.LastDBID, v.Shutdown, v.DBIDSize)
	case *codec.MessageStore:
		return fmt.Sprintf("MSG_STORE store_id=%d topic=%q qos=%d retain=%t source=%q username=%q mid=%d port=%d expiry=%d payload=%s",
			v.StoreID, v.Topic, v.QoS, v.Retain, v.SourceID, v.SourceUsername, v.SourceMID, v.SourcePort, v.ExpiryTime, payloadPreview(v.Payload))
	case *codec.ClientMessage:
		return fmt.Sprintf("CLIENT_MSG client=%q store_id=%d mid=%d qos=%d state=%s direction=%s retain=%t dup=%t",
			v.ClientID, v.StoreID, v.MID, v.QoS, v.State, v.Direction, v.Retain, v.Dup)
	case *codec.Retain:
		return fmt.Sprintf("RETAIN store_id=%d", v.StoreID)
	case *codec.Subscription:
		return fmt.Sprintf("SUB client=%q topic=%q qos=%d options=0x%02x identifier=%d",
			v.ClientID, v.Topic, v.QoS, v.Options, v.Identifier)
	case *codec.Client:
		return fmt.Sprintf("CLIENT id=%q last_mid=%d session_expiry_time=%d session_expiry_interval=%d",
			v.ID, v.LastMID, v.SessionExpiryTime, v.SessionExpiryInterval)
	}
	return fmt.Sprintf("%T", e)
}

const previewBytes = 32

func payloadPreview(p []byte) string {
	if len(p) <= previewBytes {
		return hex.EncodeToString(p)
	}
	return fmt.Sprintf("%s...(%d bytes)", hex.EncodeToString(p[:previewBytes]), len(p))
}
