/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package snipsconf

import (
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
)

const (
	SectionCommon      = "snips-common"
	SectionAudioServer = "snips-audio-server"
	SectionHotword     = "snips-hotword"

	KeyMQTT  = "mqtt"
	KeyBind  = "bind"
	KeyAudio = "audio"

	// BindSuffix is appended to a satellite name to form its audio bind address.
	BindSuffix = "@mqtt"
	// DefaultBinding is the placeholder entry of a core that has its own audio.
	DefaultBinding = "default" + BindSuffix
)

// BindAddress returns the audio bind address of a satellite name.
func BindAddress(name string) string {
	return strings.TrimSpace(name) + BindSuffix
}

// CoreAddress formats the bus endpoint a satellite writes into snips-common.mqtt.
func CoreAddress(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// ValidateName rejects names that cannot identify a satellite: empty ones and
// the core's own "default" endpoint.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return ErrEmptyName
	case BindAddress(name) == DefaultBinding:
		return fmt.Errorf("%w: %q", ErrReservedName, strings.TrimSpace(name))
	default:
		return nil
	}
}

// Registry returns the core's list of bound audio endpoints. found is false
// when the list is absent, which counts as an empty registry.
func Registry(doc *Document) (entries []string, found bool, err error) {
	return doc.Strings(SectionHotword, KeyAudio)
}

// IsNameAvailable reports whether name is not yet bound on this core.
func IsNameAvailable(doc *Document, name string) (bool, error) {
	if err := ValidateName(name); err != nil {
		return false, err
	}

	entries, _, err := Registry(doc)
	if err != nil {
		return false, err
	}

	return !slices.Contains(entries, BindAddress(name)), nil
}

// RegisterSatellite binds name on a core document. The audio-server bind and
// the registry list are created with the default placeholder when missing.
// Registering an existing name leaves the registry unchanged and reports added=false.
func RegisterSatellite(doc *Document, name string) (added bool, err error) {
	if err := ValidateName(name); err != nil {
		return false, err
	}

	if !doc.Has(SectionAudioServer, KeyBind) {
		if err := doc.SetString(SectionAudioServer, KeyBind, DefaultBinding); err != nil {
			return false, err
		}
	}

	entries, found, err := Registry(doc)
	if err != nil {
		return false, err
	}

	if !found {
		entries = []string{DefaultBinding}
	}

	candidate := BindAddress(name)
	if slices.Contains(entries, candidate) {
		if !found {
			return false, doc.SetStrings(SectionHotword, KeyAudio, entries)
		}

		return false, nil
	}

	if err := doc.SetStrings(SectionHotword, KeyAudio, append(entries, candidate)); err != nil {
		return false, err
	}

	return true, nil
}

// UnregisterSatellite removes name from a core document's registry. Removing
// an unknown name, or from an absent registry, changes nothing.
func UnregisterSatellite(doc *Document, name string) (removed bool, err error) {
	if err := ValidateName(name); err != nil {
		return false, err
	}

	entries, found, err := Registry(doc)
	if err != nil || !found {
		return false, err
	}

	candidate := BindAddress(name)
	if !slices.Contains(entries, candidate) {
		return false, nil
	}

	kept := slices.DeleteFunc(entries, func(entry string) bool { return entry == candidate })

	if err := doc.SetStrings(SectionHotword, KeyAudio, kept); err != nil {
		return false, err
	}

	return true, nil
}

// Binding is the pair of satellite fields pointing it at a core.
type Binding struct {
	CoreAddress string
	BindAddress string
}

// Name returns the satellite name encoded in the bind address.
func (b Binding) Name() string {
	return strings.TrimSuffix(b.BindAddress, BindSuffix)
}

// CurrentBinding returns the satellite binding if the document is paired with
// a core. A default or empty bind address is not a binding.
func CurrentBinding(doc *Document) (Binding, bool) {
	bind, _ := doc.String(SectionAudioServer, KeyBind)
	mqtt, _ := doc.String(SectionCommon, KeyMQTT)

	if bind == "" || bind == DefaultBinding || mqtt == "" || !strings.HasSuffix(bind, BindSuffix) {
		return Binding{}, false
	}

	return Binding{CoreAddress: mqtt, BindAddress: bind}, true
}

// SetSatelliteBinding points a satellite document at coreAddress under name.
func SetSatelliteBinding(doc *Document, coreAddress, name string) (Binding, error) {
	if err := ValidateName(name); err != nil {
		return Binding{}, err
	}

	b := Binding{CoreAddress: coreAddress, BindAddress: BindAddress(name)}

	if err := doc.SetString(SectionCommon, KeyMQTT, b.CoreAddress); err != nil {
		return Binding{}, err
	}

	if err := doc.SetString(SectionAudioServer, KeyBind, b.BindAddress); err != nil {
		return Binding{}, err
	}

	return b, nil
}

// ClearSatelliteBinding removes both binding fields from a satellite document.
func ClearSatelliteBinding(doc *Document) {
	doc.Delete(SectionCommon, KeyMQTT)
	doc.Delete(SectionAudioServer, KeyBind)
}

// EnsureSatelliteSections creates the sections and keys a satellite writes to,
// returning the dotted paths that were missing.
func EnsureSatelliteSections(doc *Document) ([]string, error) {
	var missing []string

	for _, section := range []string{SectionCommon, SectionAudioServer} {
		created, err := doc.EnsureSection(section)
		if err != nil {
			return missing, err
		}

		if created {
			missing = append(missing, section)
		}
	}

	for _, field := range [][2]string{{SectionCommon, KeyMQTT}, {SectionAudioServer, KeyBind}} {
		if doc.Has(field[0], field[1]) {
			continue
		}

		if err := doc.SetString(field[0], field[1], ""); err != nil {
			return missing, err
		}

		missing = append(missing, fmt.Sprintf("%s.%s", field[0], field[1]))
	}

	return missing, nil
}

// BindingSnapshot records the satellite binding fields, including whether
// they existed, so a failed pairing can put them back.
type BindingSnapshot struct {
	mqtt    *string
	bind    *string
	applied bool
}

// SnapshotBinding captures the current binding fields of doc.
func SnapshotBinding(doc *Document) BindingSnapshot {
	snap := BindingSnapshot{applied: true}

	if v, ok := doc.String(SectionCommon, KeyMQTT); ok {
		snap.mqtt = &v
	}

	if v, ok := doc.String(SectionAudioServer, KeyBind); ok {
		snap.bind = &v
	}

	return snap
}

// Restore writes the captured fields back, deleting those that were absent.
func (s BindingSnapshot) Restore(doc *Document) error {
	if !s.applied {
		return nil
	}

	if err := restoreField(doc, SectionCommon, KeyMQTT, s.mqtt); err != nil {
		return err
	}

	return restoreField(doc, SectionAudioServer, KeyBind, s.bind)
}

func restoreField(doc *Document, section, key string, value *string) error {
	if value == nil {
		doc.Delete(section, key)
		return nil
	}

	return doc.SetString(section, key, *value)
}
