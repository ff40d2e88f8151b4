/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package events

// SystemConfigLoadedType is the event type for SystemConfigLoaded.
const SystemConfigLoadedType = "sysconfig.loaded"

// SystemConfigLoaded is published once the startup config hydration finishes.
// Only key names are carried, never values.
type SystemConfigLoaded struct {
	BaseEvent
	// FromStore lists keys overwritten from the secret store
	FromStore []string
	// Kept lists keys that kept their local value
	Kept []string
	// Unset lists keys present nowhere
	Unset []string
}

// Type returns the event type identifier.
func (e SystemConfigLoaded) Type() string {
	return SystemConfigLoadedType
}

// NewSystemConfigLoaded creates a SystemConfigLoaded event.
func NewSystemConfigLoaded(fromStore, kept, unset []string) SystemConfigLoaded {
	return SystemConfigLoaded{
		BaseEvent: NewBaseEvent(SystemConfigLoadedType),
		FromStore: fromStore,
		Kept:      kept,
		Unset:     unset,
	}
}
