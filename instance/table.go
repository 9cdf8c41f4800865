// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package instance

import (
	"unsafe"

	"github.com/sirupsen/logrus"
)

// FunctionTable holds the entry points of one instance extension,
// resolved from the driver.
type FunctionTable struct {
	extension Extension
	commands  []string
	procs     map[string]unsafe.Pointer
}

// Extension returns the extension the table belongs to.
func (t *FunctionTable) Extension() Extension {
	return t.extension
}

// Proc returns the entry point of command, nil if the driver does not
// export it or it does not belong to the extension.
func (t *FunctionTable) Proc(command string) unsafe.Pointer {
	return t.procs[command]
}

// Commands lists the commands of the extension.
func (t *FunctionTable) Commands() []string {
	return append([]string(nil), t.commands...)
}

// Resolved returns how many commands the driver exported.
func (t *FunctionTable) Resolved() int {
	var n int
	for _, p := range t.procs {
		if p != nil {
			n++
		}
	}
	return n
}

// ExtensionTable returns the function table of ext. The table is resolved
// on the first call and shared afterwards. If the instance was not created
// with ext, a MissingExtensionError is returned and the driver is not asked.
func (i *Instance) ExtensionTable(ext Extension) (*FunctionTable, error) {
	if !i.loadedExtensions.Contains(ext) {
		return nil, &MissingExtensionError{Extension: ext}
	}
	i.checkAlive()
	return i.tables[ext].Get(func() (*FunctionTable, error) {
		return i.resolve(ext), nil
	})
}

func (i *Instance) resolve(ext Extension) *FunctionTable {
	commands := extensionInfos[ext].commands
	table := &FunctionTable{
		extension: ext,
		commands:  commands,
		procs:     make(map[string]unsafe.Pointer, len(commands)),
	}

	log := Logger()
	for _, command := range commands {
		proc := i.loader.driver.InstanceProcAddr(i.handle, command)
		if proc == nil {
			log.WithFields(logrus.Fields{
				"extension": ext.Name(),
				"command":   command,
			}).Warn("driver does not export extension command")
		}
		table.procs[command] = proc
	}
	log.WithField("extension", ext.Name()).Debug("resolved extension function table")
	return table
}

// KhrSurface returns the VK_KHR_surface function table.
func (i *Instance) KhrSurface() (*FunctionTable, error) {
	return i.ExtensionTable(KhrSurface)
}

// KhrDisplay returns the VK_KHR_display function table.
func (i *Instance) KhrDisplay() (*FunctionTable, error) {
	return i.ExtensionTable(KhrDisplay)
}

// KhrXcbSurface returns the VK_KHR_xcb_surface function table.
func (i *Instance) KhrXcbSurface() (*FunctionTable, error) {
	return i.ExtensionTable(KhrXcbSurface)
}

// KhrXlibSurface returns the VK_KHR_xlib_surface function table.
func (i *Instance) KhrXlibSurface() (*FunctionTable, error) {
	return i.ExtensionTable(KhrXlibSurface)
}

// KhrWaylandSurface returns the VK_KHR_wayland_surface function table.
func (i *Instance) KhrWaylandSurface() (*FunctionTable, error) {
	return i.ExtensionTable(KhrWaylandSurface)
}

// KhrWin32Surface returns the VK_KHR_win32_surface function table.
func (i *Instance) KhrWin32Surface() (*FunctionTable, error) {
	return i.ExtensionTable(KhrWin32Surface)
}

// ExtDebugUtils returns the VK_EXT_debug_utils function table.
func (i *Instance) ExtDebugUtils() (*FunctionTable, error) {
	return i.ExtensionTable(ExtDebugUtils)
}
