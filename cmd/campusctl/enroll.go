package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Enroll reference photos with the face service",
	Long: `Send one reference photo per student to the face recognition service.
Photos are read from --dir either as <student_id>.jpg|.jpeg|.png or as the
first image inside a <student_id>/ folder. Students missing from the
directory are skipped.

Example:
  campusctl enroll --dir ./faces`,
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)
	enrollCmd.Flags().String("dir", "faces", "Directory holding reference photos")
	enrollCmd.Flags().Bool("quiet", false, "Hide the progress bar")
}

type photoFile struct {
	studentID string
	path      string
}

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// findPhotos lists one photo per student id found in dir.
func findPhotos(dir string) ([]photoFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var photos []photoFile
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() {
			ext := strings.ToLower(filepath.Ext(name))
			if imageExts[ext] {
				photos = append(photos, photoFile{studentID: strings.TrimSuffix(name, filepath.Ext(name)), path: filepath.Join(dir, name)})
			}
			continue
		}
		inner, err := os.ReadDir(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		for _, f := range inner {
			if !f.IsDir() && imageExts[strings.ToLower(filepath.Ext(f.Name()))] {
				photos = append(photos, photoFile{studentID: name, path: filepath.Join(dir, name, f.Name())})
				break
			}
		}
	}
	sort.Slice(photos, func(i, j int) bool { return photos[i].studentID < photos[j].studentID })
	return photos, nil
}

func runEnroll(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	photos, err := findPhotos(mustGetString(cmd, "dir"))
	if err != nil {
		return err
	}
	if len(photos) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No photos found")
		return nil
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var barOut io.Writer = cmd.ErrOrStderr()
	if mustGetBool(cmd, "quiet") {
		barOut = io.Discard
	}
	bar := progressbar.NewOptions(len(photos),
		progressbar.OptionSetWriter(barOut),
		progressbar.OptionSetDescription("Enrolling faces"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	var enrolled, skipped int
	var errs []error
	for _, p := range photos {
		_ = bar.Add(1)
		st, err := a.Attendance.Repo().GetStudent(ctx, p.studentID)
		if err != nil {
			return err
		}
		if st == nil {
			skipped++
			continue
		}
		data, err := os.ReadFile(p.path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.studentID, err))
			continue
		}
		res, err := a.Face.Enroll(ctx, p.studentID, data, filepath.Base(p.path))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.studentID, err))
			continue
		}
		if !res.Success {
			errs = append(errs, fmt.Errorf("%s: %s", p.studentID, res.Message))
			continue
		}
		enrolled++
	}
	_ = bar.Finish()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nEnrolled %d, skipped %d unknown, failed %d\n", enrolled, skipped, len(errs))
	for _, err := range errs {
		fmt.Fprintf(out, "  %v\n", err)
	}
	if len(errs) > 0 {
		return errors.New("some photos could not be enrolled")
	}
	return nil
}
