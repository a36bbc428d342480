package pdfdoc

import (
	"fmt"
	"testing"
)

func TestWalkPagesDetectsCycle(t *testing.T) {
	var buf []byte
	buf = append(buf, "%PDF-1.4\n"...)
	offsets := make(map[int]int)
	addObj := func(oid int, body string) {
		offsets[oid] = len(buf)
		buf = append(buf, fmt.Sprintf("%d 0 obj\n%s\nendobj\n", oid, body)...)
	}
	addObj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	addObj(2, "<< /Type /Pages /Kids [2 0 R] /MediaBox [0 0 612 792] >>")

	xrefOffset := len(buf)
	buf = append(buf, "xref\n0 3\n0000000000 65535 f \n"...)
	for i := 1; i <= 2; i++ {
		buf = append(buf, fmt.Sprintf("%010d %05d n \n", offsets[i], 0)...)
	}
	buf = append(buf, "trailer\n<< /Size 3 /Root 1 0 R >>\n"...)
	buf = append(buf, fmt.Sprintf("startxref\n%d\n%%%%EOF\n", xrefOffset)...)

	doc, err := Open(buf)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if doc.GetPageCount() != 0 {
		t.Error("a cyclic tree should yield an empty page index, not a crash")
	}
}

func TestWalkPagesRejectsUnknownType(t *testing.T) {
	var buf []byte
	buf = append(buf, "%PDF-1.4\n"...)
	offsets := make(map[int]int)
	addObj := func(oid int, body string) {
		offsets[oid] = len(buf)
		buf = append(buf, fmt.Sprintf("%d 0 obj\n%s\nendobj\n", oid, body)...)
	}
	addObj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	addObj(2, "<< /Type /Bogus /Kids [] >>")

	xrefOffset := len(buf)
	buf = append(buf, "xref\n0 3\n0000000000 65535 f \n"...)
	for i := 1; i <= 2; i++ {
		buf = append(buf, fmt.Sprintf("%010d %05d n \n", offsets[i], 0)...)
	}
	buf = append(buf, "trailer\n<< /Size 3 /Root 1 0 R >>\n"...)
	buf = append(buf, fmt.Sprintf("startxref\n%d\n%%%%EOF\n", xrefOffset)...)

	doc, err := Open(buf)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if doc.GetPageCount() != 0 {
		t.Error("an unrecognized node /Type should not contribute a page")
	}
}

func TestWalkPagesInheritsMediaBox(t *testing.T) {
	doc, err := Open(buildFixturePDF())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	rect, ok := doc.PageSize(0)
	if !ok {
		t.Fatal("expected page 0 to have a size")
	}
	if rect.LLX != 0 || rect.URX != 612 {
		t.Errorf("unexpected inherited box: %+v", rect)
	}
}
