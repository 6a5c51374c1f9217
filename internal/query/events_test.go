package query_test

import (
	"reflect"
	"testing"

	"doorman/internal/query"
)

func TestParseEventTextMessage(t *testing.T) {
	fields := map[string]string{
		"targetmode":  "1",
		"msg":         "hello there",
		"invokerid":   "3",
		"invokername": "Sam",
		"invokeruid":  "uid-sam",
		"target":      "7",
	}
	event, ok := query.ParseEvent("notifytextmessage", fields)
	if !ok {
		t.Fatal("expected event")
	}
	msg, ok := event.(*query.TextMessage)
	if !ok {
		t.Fatalf("expected *TextMessage, got %T", event)
	}
	if msg.TargetMode != query.TargetModePrivate {
		t.Fatalf("TargetMode = %d, want private", msg.TargetMode)
	}
	if msg.Message != "hello there" || msg.InvokerID != 3 || msg.InvokerName != "Sam" || msg.Target != 7 {
		t.Fatalf("unexpected fields: %#v", msg)
	}
	if !reflect.DeepEqual(msg.Raw(), fields) {
		t.Fatal("Raw() should carry the original field map")
	}
}

func TestParseEventTextMessageInvalidMode(t *testing.T) {
	event, ok := query.ParseEvent("notifytextmessage", map[string]string{"targetmode": "9", "msg": "x"})
	if !ok {
		t.Fatal("expected event")
	}
	if event.(*query.TextMessage).TargetMode != query.TargetModePrivate {
		t.Fatal("invalid target mode should default to private")
	}
}

func TestParseEventClientEntered(t *testing.T) {
	event, ok := query.ParseEvent("notifycliententerview", map[string]string{
		"clid":                     "12",
		"client_nickname":          "Alex",
		"client_unique_identifier": "uid-alex",
		"client_database_id":       "40",
		"ctid":                     "2",
		"cfid":                     "0",
		"reasonid":                 "0",
		"client_away":              "1",
		"client_input_muted":       "0",
	})
	if !ok {
		t.Fatal("expected event")
	}
	entered := event.(*query.ClientEntered)
	if entered.ClientID != 12 || entered.ClientDBID != 40 || entered.TargetChannelID != 2 {
		t.Fatalf("unexpected ids: %#v", entered)
	}
	if !entered.Away || entered.InputMuted || entered.Recording {
		t.Fatalf("unexpected flags: %#v", entered)
	}
	if entered.Country != "" || entered.Description != "" {
		t.Fatalf("missing optional fields should default to empty: %#v", entered)
	}
}

func TestParseEventClientMovedDisambiguation(t *testing.T) {
	fields := map[string]string{"clid": "5", "ctid": "2", "reasonid": "1"}
	event, ok := query.ParseEvent("notifyclientmoved", fields)
	if !ok {
		t.Fatal("expected event")
	}
	moved, ok := event.(*query.ClientMovedSelf)
	if !ok {
		t.Fatalf("expected *ClientMovedSelf without invokerid, got %T", event)
	}
	if moved.ClientID != 5 || moved.TargetChannelID != 2 || moved.ReasonID != 1 {
		t.Fatalf("unexpected fields: %#v", moved)
	}

	fields["invokerid"] = "9"
	fields["invokername"] = "Mod"
	fields["invokeruid"] = "uid-mod"
	event, ok = query.ParseEvent("notifyclientmoved", fields)
	if !ok {
		t.Fatal("expected event")
	}
	forced, ok := event.(*query.ClientMoved)
	if !ok {
		t.Fatalf("expected *ClientMoved with invokerid, got %T", event)
	}
	if forced.InvokerID != 9 || forced.InvokerName != "Mod" {
		t.Fatalf("unexpected invoker: %#v", forced)
	}
}

func TestParseEventClientLeft(t *testing.T) {
	event, ok := query.ParseEvent("notifyclientleftview", map[string]string{
		"clid":      "5",
		"cfid":      "2",
		"ctid":      "0",
		"reasonid":  "8",
		"reasonmsg": "leaving",
	})
	if !ok {
		t.Fatal("expected event")
	}
	left := event.(*query.ClientLeft)
	if left.ClientID != 5 || left.ReasonID != 8 || left.ReasonMessage != "leaving" {
		t.Fatalf("unexpected fields: %#v", left)
	}
}

func TestParseEventServerEditedResidualMap(t *testing.T) {
	event, ok := query.ParseEvent("notifyserveredited", map[string]string{
		"reasonid":            "10",
		"invokerid":           "1",
		"invokername":         "admin",
		"invokeruid":          "uid-admin",
		"virtualserver_name":  "renamed",
		"virtualserver_motto": "new motto",
	})
	if !ok {
		t.Fatal("expected event")
	}
	edited := event.(*query.ServerEdited)
	want := map[string]string{
		"virtualserver_name":  "renamed",
		"virtualserver_motto": "new motto",
	}
	if !reflect.DeepEqual(edited.Changed, want) {
		t.Fatalf("Changed = %#v, want %#v", edited.Changed, want)
	}
	if edited.InvokerID != 1 || edited.ReasonID != 10 {
		t.Fatalf("unexpected invoker/reason: %#v", edited)
	}
}

func TestParseEventChannelVariants(t *testing.T) {
	event, ok := query.ParseEvent("notifychanneledited", map[string]string{
		"cid": "4", "invokerid": "1", "reasonid": "10", "channel_topic": "news",
	})
	if !ok {
		t.Fatal("expected event")
	}
	if edited := event.(*query.ChannelEdited); edited.ChannelID != 4 || edited.Topic != "news" {
		t.Fatalf("unexpected fields: %#v", edited)
	}

	event, ok = query.ParseEvent("notifychanneldescriptionchanged", map[string]string{"cid": "4"})
	if !ok {
		t.Fatal("expected event")
	}
	if desc := event.(*query.ChannelDescriptionEdited); desc.ChannelID != 4 {
		t.Fatalf("unexpected fields: %#v", desc)
	}
}

func TestParseEventUnknownType(t *testing.T) {
	if _, ok := query.ParseEvent("notifytokenused", map[string]string{}); ok {
		t.Fatal("unknown event types should not parse")
	}
}

func TestParseEventIntDefaults(t *testing.T) {
	event, ok := query.ParseEvent("notifyclientleftview", map[string]string{"clid": "garbage"})
	if !ok {
		t.Fatal("expected event")
	}
	left := event.(*query.ClientLeft)
	if left.ClientID != -1 || left.TargetChannelID != -1 {
		t.Fatalf("unparsable ints should default to -1: %#v", left)
	}
}
