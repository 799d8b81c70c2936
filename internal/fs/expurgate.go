package fs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/safedep/blpfs/internal/auditlog"
	"github.com/safedep/blpfs/label"
	"github.com/safedep/blpfs/policy"
	"github.com/safedep/blpfs/usefulerror"
)

// ExpurgateMarker is prepended to the destination so a downgraded copy
// is visibly distinguishable from its source.
const ExpurgateMarker = "[EXPURGATED]\n"

// Expurgate produces a lower-labeled derivative of a higher-labeled
// source: the explicit, audited downgrade channel. It is an extension
// operation, not a kernel callback.
//
// Requirements: the caller must be trusted, and the source label must be
// strictly greater than the destination label. The destination is
// written via a temporary file in its directory and renamed into place,
// so a crash mid-copy cannot leave a partially downgraded destination.
func (m *Mediator) Expurgate(srcVPath, dstVPath string) error {
	srcLabel := label.Infer(srcVPath)
	dstLabel := label.Infer(dstVPath)

	p := m.resolver.CurrentPrincipal()
	dec := policy.Decide(p, policy.OpExpurgate, srcLabel, policy.Intent{Destination: dstLabel})

	auditPath := fmt.Sprintf("%s -> %s", srcVPath, dstVPath)

	srcFull, err := m.fullPath(p, string(policy.OpExpurgate), srcVPath)
	if err != nil {
		return err
	}

	dstFull, err := m.fullPath(p, string(policy.OpExpurgate), dstVPath)
	if err != nil {
		return err
	}

	if !dec.Granted() {
		return m.deny(p, string(policy.OpExpurgate), auditPath, dec)
	}

	content, rerr := os.ReadFile(srcFull)
	if rerr != nil {
		m.record(p, string(policy.OpExpurgate), auditPath, auditlog.StatusError, rerr.Error())
		return substrate(rerr)
	}

	if err := writeViaRename(dstFull, append([]byte(ExpurgateMarker), content...)); err != nil {
		m.record(p, string(policy.OpExpurgate), auditPath, auditlog.StatusError, err.Error())
		return usefulerror.Useful().
			WithCode(usefulerror.ErrCodeIOError).
			WithHumanError("Failed to write the expurgated copy").
			Wrap(err)
	}

	return m.record(p, string(policy.OpExpurgate), auditPath, auditlog.StatusGranted,
		fmt.Sprintf("downgrade %s->%s", dec.From, dec.To))
}

// writeViaRename writes data to a temporary file next to dst, syncs it,
// and renames it into place.
func writeViaRename(dst string, data []byte) error {
	dir := filepath.Dir(dst)

	tmp, err := os.CreateTemp(dir, ".expurgate-*")
	if err != nil {
		return err
	}

	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}

	return os.Rename(tmpName, dst)
}
