package pdfdoc

import (
	"testing"

	"github.com/opensig/pdfmut/pdfgraph"
)

type stubEmitter struct{ calledRebuild bool }

func (s *stubEmitter) EmitSigned(doc *Document, rebuild bool) ([]byte, error) {
	s.calledRebuild = rebuild
	return []byte("signed"), nil
}

func TestSetPendingSignatureRefusesSecond(t *testing.T) {
	doc, err := Open(buildFixturePDF())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := doc.SetPendingSignature(&PendingSignature{SignatureOID: 4, Emitter: &stubEmitter{}}); err != nil {
		t.Fatalf("first SetPendingSignature failed: %v", err)
	}
	if err := doc.SetPendingSignature(&PendingSignature{SignatureOID: 5, Emitter: &stubEmitter{}}); err != ErrAlreadyPrepared {
		t.Errorf("expected ErrAlreadyPrepared, got %v", err)
	}
}

func TestEmitDelegatesToPendingSignature(t *testing.T) {
	doc, err := Open(buildFixturePDF())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	stub := &stubEmitter{}
	if err := doc.SetPendingSignature(&PendingSignature{SignatureOID: 4, Emitter: stub}); err != nil {
		t.Fatalf("SetPendingSignature failed: %v", err)
	}
	out, err := doc.Emit(true)
	if err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	if string(out) != "signed" || !stub.calledRebuild {
		t.Errorf("Emit did not delegate correctly: out=%q calledRebuild=%v", out, stub.calledRebuild)
	}
}

func TestSnapshotRestoreRevertsOverrides(t *testing.T) {
	doc, err := Open(buildFixturePDF())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	snap := doc.Snapshot()

	doc.CreateObject(pdfgraph.Integer(1), KindPlain)
	if doc.MaxOID() != 4 {
		t.Fatalf("expected max oid 4 after CreateObject, got %d", doc.MaxOID())
	}

	doc.Restore(snap)
	if doc.MaxOID() != 3 {
		t.Errorf("Restore did not revert max oid: got %d, want 3", doc.MaxOID())
	}
	if _, ok := doc.GetObject(4, false); ok {
		t.Error("Restore did not revert the added object")
	}
}

func TestClearPendingSignatureAllowsRetry(t *testing.T) {
	doc, err := Open(buildFixturePDF())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := doc.SetPendingSignature(&PendingSignature{SignatureOID: 4, Emitter: &stubEmitter{}}); err != nil {
		t.Fatalf("SetPendingSignature failed: %v", err)
	}
	doc.ClearPendingSignature()
	if err := doc.SetPendingSignature(&PendingSignature{SignatureOID: 5, Emitter: &stubEmitter{}}); err != nil {
		t.Errorf("expected retry to succeed after ClearPendingSignature, got %v", err)
	}
}
