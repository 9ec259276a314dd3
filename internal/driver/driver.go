// Package driver invokes the external dependency-resolution tool as a
// subprocess to refresh a per-(release, arch) metadata cache, enumerate
// repository contents, and run the closure check. It owns the subprocess
// command line; the tool itself is an external collaborator characterized
// only by its command-line surface and textual output grammar.
package driver

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/mkowalski/repochecker/internal/dnfoutput"
	"github.com/mkowalski/repochecker/internal/retry"
)

// Driver runs the external tool under a scratch directory rooted at BaseDir
// (default "cache").
type Driver struct {
	// Tool is the subprocess executable name; overridable for tests.
	Tool string
	// BaseDir roots the per-(release, arch) scratch directories.
	BaseDir string
}

// New returns a Driver invoking the real tool under "cache/".
func New() *Driver {
	return &Driver{Tool: "dnf", BaseDir: "cache"}
}

// ScratchDir returns (and creates, if needed) cache/<release>/<arch>.
func (d *Driver) ScratchDir(release, arch string) (string, error) {
	dir := filepath.Join(d.BaseDir, release, arch)

	info, err := os.Stat(dir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return "", fmt.Errorf("driver: scratch path %s exists and is not a directory", dir)
		}
	case os.IsNotExist(err):
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("driver: creating scratch directory %s: %w", dir, err)
		}
	default:
		return "", fmt.Errorf("driver: stat scratch directory %s: %w", dir, err)
	}

	return dir, nil
}

// RefreshCache runs `makecache --refresh` under the scratch directory for
// (release, arch) against repos. Non-zero exit is a fatal error for this
// matrix entry.
func (d *Driver) RefreshCache(ctx context.Context, release, arch string, repos []string) error {
	dir, err := d.ScratchDir(release, arch)
	if err != nil {
		return err
	}

	args := d.baseArgs(dir, release, repos, arch)
	args = append(args, "makecache", "--refresh")

	stdout, stderr, err := d.run(ctx, args)
	slog.Debug("makecache output", "release", release, "arch", arch, "stdout", stdout, "stderr", stderr)
	if err != nil {
		return fmt.Errorf("driver: makecache failed for %s/%s: %w", release, arch, err)
	}
	return nil
}

// EnumerateContents runs `repoquery` under the scratch directory and parses
// its output into typed Package records.
func (d *Driver) EnumerateContents(ctx context.Context, release, arch string, repos []string) ([]dnfoutput.Package, error) {
	dir, err := d.ScratchDir(release, arch)
	if err != nil {
		return nil, err
	}

	args := d.baseArgs(dir, release, repos, arch)
	args = append(args, "repoquery", "--queryformat", "%{name} %{source_name} %{epoch} %{version} %{release} %{arch}")

	stdout, _, err := d.run(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("driver: repoquery failed for %s/%s: %w", release, arch, err)
	}

	return dnfoutput.ParseContentListing(stdout)
}

// ClosureCheck runs `repoclosure --newest --arch <multiArch>... --check <c>`
// once per element of check, concatenating the parsed broken records.
// Non-zero exits are tolerated — the tool exits non-zero whenever broken
// packages exist; the textual output is the primary signal.
func (d *Driver) ClosureCheck(ctx context.Context, release, arch string, repos, multiArch, check []string) ([]dnfoutput.BrokenDep, error) {
	dir, err := d.ScratchDir(release, arch)
	if err != nil {
		return nil, err
	}

	var all []dnfoutput.BrokenDep
	for _, c := range check {
		args := d.baseArgs(dir, release, repos, arch)
		args = append(args, "repoclosure", "--newest")
		for _, m := range multiArch {
			args = append(args, "--arch", m)
		}
		args = append(args, "--check", c)

		stdout, stderr, err := d.runTolerant(ctx, args)
		if err != nil {
			// Only a launch failure (exec itself failing) reaches here;
			// the tool's own non-zero exit is swallowed by runTolerant.
			return nil, fmt.Errorf("driver: repoclosure failed to launch for %s/%s/%s: %w (stderr: %s)", release, arch, c, err, stderr)
		}

		deps, err := dnfoutput.ParseClosureOutput(stdout)
		if err != nil {
			return nil, fmt.Errorf("driver: parsing repoclosure output for %s/%s/%s: %w", release, arch, c, err)
		}
		all = append(all, deps...)
	}

	return all, nil
}

func (d *Driver) baseArgs(installroot, release string, repos []string, arch string) []string {
	args := []string{"--quiet", "--installroot", installroot, "--releasever", release}
	for _, r := range repos {
		args = append(args, "--repo", r)
	}
	args = append(args, "--forcearch", arch)
	return args
}

// run executes the tool, retrying only on spawn (exec) failure, and treats a
// non-zero exit as an error. A non-zero exit is never retried: it reaches
// WithRetry's callback as nil so the policy stops immediately, and run
// reports it to the caller afterward, the same split runTolerant uses.
func (d *Driver) run(ctx context.Context, args []string) (stdout, stderr string, err error) {
	var exitErr *exec.ExitError
	retryErr := retry.WithRetry(ctx, retry.DefaultPolicy(), func() error {
		var execErr error
		stdout, stderr, execErr = d.exec(ctx, args)
		if ee, ok := execErr.(*exec.ExitError); ok {
			exitErr = ee
			return nil
		}
		return execErr
	})
	if retryErr != nil {
		return stdout, stderr, retryErr
	}
	if exitErr != nil {
		return stdout, stderr, fmt.Errorf("exit status %d", exitErr.ExitCode())
	}
	return stdout, stderr, nil
}

// runTolerant executes the tool, also retrying only on spawn failure, but
// never treats a non-zero exit as an error — the caller is responsible for
// distinguishing "tool ran and found broken packages" from "tool failed to
// launch".
func (d *Driver) runTolerant(ctx context.Context, args []string) (stdout, stderr string, err error) {
	err = retry.WithRetry(ctx, retry.DefaultPolicy(), func() error {
		cmd := exec.CommandContext(ctx, d.Tool, args...)
		var outBuf, errBuf bytes.Buffer
		cmd.Stdout = &outBuf
		cmd.Stderr = &errBuf

		runErr := cmd.Run()
		stdout, stderr = outBuf.String(), errBuf.String()

		if _, isExit := runErr.(*exec.ExitError); isExit {
			// Non-zero exit from the tool itself: not a launch failure,
			// never retried.
			return nil
		}
		return runErr
	})
	return stdout, stderr, err
}

// exec launches the tool and returns cmd.Run's error verbatim: a
// *exec.ExitError for a non-zero exit, or the underlying launch error
// (missing binary, context cancellation, ...) for anything else. Callers
// must type-switch on it to tell a completed run from a failed spawn; exec
// itself must not collapse the two into one opaque error.
func (d *Driver) exec(ctx context.Context, args []string) (stdout, stderr string, err error) {
	cmd := exec.CommandContext(ctx, d.Tool, args...)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err = cmd.Run()
	stdout, stderr = outBuf.String(), errBuf.String()
	return stdout, stderr, err
}
