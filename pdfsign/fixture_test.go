package pdfsign

import "fmt"

// buildFixturePDF returns a minimal 1-page PDF with a Catalog, Pages, Page,
// and Info object, classic xref, suitable for exercising PrepareSignature.
func buildFixturePDF() []byte {
	var buf []byte
	buf = append(buf, "%PDF-1.4\n"...)

	offsets := make(map[int]int)
	addObj := func(oid int, body string) {
		offsets[oid] = len(buf)
		buf = append(buf, fmt.Sprintf("%d 0 obj\n%s\nendobj\n", oid, body)...)
	}
	addObj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	addObj(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 612 792] >>")
	addObj(3, "<< /Type /Page /Parent 2 0 R >>")
	addObj(4, "<< /Title (fixture) >>")

	xrefOffset := len(buf)
	buf = append(buf, "xref\n"...)
	buf = append(buf, "0 5\n"...)
	buf = append(buf, "0000000000 65535 f \n"...)
	for i := 1; i <= 4; i++ {
		buf = append(buf, fmt.Sprintf("%010d %05d n \n", offsets[i], 0)...)
	}
	buf = append(buf, "trailer\n"...)
	buf = append(buf, "<< /Size 5 /Root 1 0 R /Info 4 0 R >>\n"...)
	buf = append(buf, fmt.Sprintf("startxref\n%d\n%%%%EOF\n", xrefOffset)...)
	return buf
}
