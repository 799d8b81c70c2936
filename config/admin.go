package config

import (
	"fmt"

	"github.com/safedep/blpfs/label"
)

// Administrative mutations of the credential store. These are
// themselves policy-gated: trust changes require a TOP_SECRET trusted
// operator, and level changes additionally require the operator's
// clearance to strictly exceed both the target's current level and the
// new level.

// operatorCredential loads and validates the operator's own record.
func operatorCredential(creds Credentials, operator string) (Credential, label.Sensitivity, error) {
	cred, ok := creds[operator]
	if !ok {
		return Credential{}, label.Unclassified, fmt.Errorf("operator %q is not in the credential store", operator)
	}

	lvl, err := label.Parse(cred.Level)
	if err != nil {
		return Credential{}, label.Unclassified, fmt.Errorf("operator %q has an invalid level: %w", operator, err)
	}

	return cred, lvl, nil
}

func requireAdministrator(creds Credentials, operator string) (label.Sensitivity, error) {
	cred, lvl, err := operatorCredential(creds, operator)
	if err != nil {
		return label.Unclassified, err
	}

	if !cred.Trusted || lvl != label.TopSecret {
		return label.Unclassified, fmt.Errorf("only TOP_SECRET trusted principals may administer the credential store")
	}

	return lvl, nil
}

// SetTrust flips the trust flag of target. Only a TOP_SECRET trusted
// operator may change trust of any principal.
func SetTrust(usersFile, operator, target string, trusted bool) error {
	creds, err := LoadStore(usersFile)
	if err != nil {
		return err
	}

	if _, err := requireAdministrator(creds, operator); err != nil {
		return err
	}

	cred, ok := creds[target]
	if !ok {
		return fmt.Errorf("principal %q not found", target)
	}

	cred.Trusted = trusted
	creds[target] = cred

	return SaveStore(usersFile, creds)
}

// SetLevel changes the clearance of target. On top of the administrator
// gate, the operator's clearance must strictly exceed the target's
// current level and the new level.
func SetLevel(usersFile, operator, target string, newLevel label.Sensitivity) error {
	creds, err := LoadStore(usersFile)
	if err != nil {
		return err
	}

	operatorLevel, err := requireAdministrator(creds, operator)
	if err != nil {
		return err
	}

	cred, ok := creds[target]
	if !ok {
		return fmt.Errorf("principal %q not found", target)
	}

	currentLevel, err := label.Parse(cred.Level)
	if err != nil {
		return fmt.Errorf("principal %q has an invalid level: %w", target, err)
	}

	if operatorLevel <= currentLevel || operatorLevel <= newLevel {
		return fmt.Errorf("clearance changes require the operator's level to exceed the target's current and new levels")
	}

	cred.Level = newLevel.String()
	creds[target] = cred

	return SaveStore(usersFile, creds)
}

// AddPrincipal creates a new credential record. Same gate as SetLevel.
func AddPrincipal(usersFile, operator, target string, level label.Sensitivity, trusted bool) error {
	creds, err := LoadStore(usersFile)
	if err != nil {
		return err
	}

	operatorLevel, err := requireAdministrator(creds, operator)
	if err != nil {
		return err
	}

	if _, exists := creds[target]; exists {
		return fmt.Errorf("principal %q already exists", target)
	}

	if operatorLevel <= level {
		return fmt.Errorf("cannot create a principal at or above the operator's own level")
	}

	creds[target] = Credential{Level: level.String(), Trusted: trusted}

	return SaveStore(usersFile, creds)
}

// RemovePrincipal deletes a credential record. Same gate as SetLevel.
func RemovePrincipal(usersFile, operator, target string) error {
	creds, err := LoadStore(usersFile)
	if err != nil {
		return err
	}

	operatorLevel, err := requireAdministrator(creds, operator)
	if err != nil {
		return err
	}

	cred, ok := creds[target]
	if !ok {
		return fmt.Errorf("principal %q not found", target)
	}

	currentLevel, err := label.Parse(cred.Level)
	if err == nil && operatorLevel <= currentLevel {
		return fmt.Errorf("cannot remove a principal at or above the operator's own level")
	}

	delete(creds, target)

	return SaveStore(usersFile, creds)
}
