package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/pkg/errors"

	"github.com/trezcool/karo/core/student"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// writeQRCodes writes one <code>.png per student into dir, which is created if needed.
func (cli *commandLine) writeQRCodes(dir string, classID, size int) error {
	students, err := cli.studentRepo.QueryStudents(context.Background(), student.QueryFilter{ClassID: classID})
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", dir)
	}

	for _, stu := range students {
		png, err := stu.QRCode(size)
		if err != nil {
			return errors.Wrapf(err, "encoding QR code of %s", stu.Code)
		}
		name := filepath.Join(dir, unsafeFileChars.ReplaceAllString(stu.Code, "_")+".png")
		if err := os.WriteFile(name, png, 0o644); err != nil {
			return errors.Wrapf(err, "writing %s", name)
		}
	}
	fmt.Fprintf(cli.out, "%d QR code(s) written to %s\n", len(students), dir)
	return nil
}
