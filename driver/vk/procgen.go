// Copyright 2026 Gustavo C. Viegas. All rights reserved.

//go:build ignore

// procgen generates code that wraps Vulkan function pointers.
package main

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Types for unmarshaling Vulkan procedures.
type (
	Registry struct {
		XMLName  xml.Name `xml:"registry"`
		Commands Commands `xml:"commands"`
		Types    Types    `xml:"types"` // Only used for header version currently.
	}
	Commands struct {
		XMLName xml.Name  `xml:"commands"`
		Command []Command `xml:"command"`
	}
	Command struct {
		XMLName xml.Name `xml:"command"`
		API     string   `xml:"api,attr"`
		Type    string   `xml:"proto>type"`
		Name    string   `xml:"proto>name"`
		Param   []Param  `xml:"param"`
		kind    int      // Distinguishes global, instance and device commands.
	}
	Param struct {
		XMLName xml.Name `xml:"param"`
		API     string   `xml:"api,attr"`
		param   string   // Concatenation of <param>, <type> and <name> CharData.
	}
	Types struct {
		XMLName xml.Name `xml:"types"`
		Type    []Type   `xml:"type"`
	}
	Type struct {
		XMLName  xml.Name `xml:"type"`
		API      string   `xml:"api,attr"`
		Name     string   `xml:"name"`
		CharData string   `xml:",chardata"`
	}
)

// Command.kind will be set to one of these values.
const (
	Global = iota
	Instance
	Device
)

// IsValidAPI checks that the API atrribute is valid ("vulkan" or undefined).
func IsValidAPI(api string) bool {
	api = strings.TrimSpace(api)
	return api == "" || api == "vulkan"
}

// UnmarshalXML implements xml.Unmarshaler for Param.
func (p *Param) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	ctx := "param"
	for i := range start.Attr {
		if start.Attr[i].Name.Local == "api" {
			p.API = start.Attr[i].Value
			if !IsValidAPI(p.API) {
				return d.Skip()
			}
		}
	}
tokLoop:
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "type", "name":
				if ctx != "param" {
					break tokLoop
				}
				ctx = t.Name.Local
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "param":
				if ctx != "param" {
					break tokLoop
				}
				// Done.
				return nil
			case "type", "name":
				if ctx != t.Name.Local {
					break tokLoop
				}
				ctx = "param"
			}

		case xml.CharData:
			switch ctx {
			case "param":
				s := string(t)
				if strings.HasPrefix(s, "  ") {
					s = " " + strings.TrimLeft(s, " ")
				}
				if strings.HasSuffix(s, "  ") {
					s = strings.TrimRight(s, " ") + " "
				}
				p.param += s
			case "type", "name":
				p.param += string(t)
			}

		case xml.Comment:
			// Ignore.

		default:
			if err = d.Skip(); err != nil {
				return err
			}
		}
	}
	return errors.New("ill-formed XML")
}

// Commands to include, in generation order.
// Core commands use the name under which they were promoted,
// so the loaded library must expose the v1.2 entry points.
var (
	Core = []string{
		"vkGetInstanceProcAddr",
		"vkGetDeviceProcAddr",
		"vkEnumerateInstanceVersion",
		"vkEnumerateInstanceExtensionProperties",
		"vkCreateInstance",
		"vkDestroyInstance",
		"vkEnumeratePhysicalDevices",
		"vkGetPhysicalDeviceProperties",
		"vkGetPhysicalDeviceProperties2",
		"vkGetPhysicalDeviceFeatures2",
		"vkGetPhysicalDeviceQueueFamilyProperties",
		"vkGetPhysicalDeviceMemoryProperties",
		"vkGetPhysicalDeviceImageFormatProperties",
		"vkEnumerateDeviceExtensionProperties",
		"vkCreateDevice",
		"vkDestroyDevice",
		"vkGetDeviceQueue",
		"vkQueueSubmit",
		"vkQueueWaitIdle",
		"vkDeviceWaitIdle",
		"vkCreateFence",
		"vkDestroyFence",
		"vkResetFences",
		"vkWaitForFences",
		"vkAllocateMemory",
		"vkFreeMemory",
		"vkMapMemory",
		"vkUnmapMemory",
		"vkCreateBuffer",
		"vkDestroyBuffer",
		"vkGetBufferMemoryRequirements",
		"vkBindBufferMemory",
		"vkGetBufferDeviceAddress",
		"vkCreateImage",
		"vkDestroyImage",
		"vkGetImageMemoryRequirements",
		"vkBindImageMemory",
		"vkCreateImageView",
		"vkDestroyImageView",
		"vkCreateShaderModule",
		"vkDestroyShaderModule",
		"vkCreateDescriptorSetLayout",
		"vkDestroyDescriptorSetLayout",
		"vkCreateDescriptorPool",
		"vkDestroyDescriptorPool",
		"vkAllocateDescriptorSets",
		"vkUpdateDescriptorSets",
		"vkCreatePipelineLayout",
		"vkDestroyPipelineLayout",
		"vkCreateComputePipelines",
		"vkDestroyPipeline",
		"vkCreateCommandPool",
		"vkDestroyCommandPool",
		"vkAllocateCommandBuffers",
		"vkBeginCommandBuffer",
		"vkEndCommandBuffer",
		"vkResetCommandBuffer",
		"vkCmdBindPipeline",
		"vkCmdBindDescriptorSets",
		"vkCmdPushConstants",
		"vkCmdDispatch",
		"vkCmdCopyBuffer",
		"vkCmdCopyBufferToImage",
		"vkCmdCopyImageToBuffer",
		"vkCmdFillBuffer",
		"vkCmdPipelineBarrier",
	}
	Ext = []string{
		// From VK_KHR_acceleration_structure:
		"vkCreateAccelerationStructureKHR",
		"vkDestroyAccelerationStructureKHR",
		"vkGetAccelerationStructureBuildSizesKHR",
		"vkGetAccelerationStructureDeviceAddressKHR",
		"vkCmdBuildAccelerationStructuresKHR",
		// From VK_KHR_ray_tracing_pipeline:
		"vkCreateRayTracingPipelinesKHR",
		"vkGetRayTracingShaderGroupHandlesKHR",
		"vkCmdTraceRaysKHR",
	}
)

// Filter rewrites cs to contain exactly the commands named in
// Core and Ext, in listing order.
// Aliasing commands have an empty proto and thus never match,
// so promoted commands resolve to their core definition.
func (cs *Commands) Filter() {
	idx := make(map[string]int, len(cs.Command))
	for i := range cs.Command {
		if !IsValidAPI(cs.Command[i].API) {
			continue
		}
		if cs.Command[i].Name != "" {
			idx[cs.Command[i].Name] = i
		}
	}
	cmds := make([]Command, 0, len(Core)+len(Ext))
	for _, x := range [2][]string{Core, Ext} {
		for _, name := range x {
			i, ok := idx[name]
			if !ok {
				panic("no such command in the registry: " + name)
			}
			cmds = append(cmds, cs.Command[i])
		}
	}
	cs.Command = cmds
}

// Distinguish sets the kind of each Command element.
func (cs *Commands) Distinguish() {
	for i := range cs.Command {
		if cs.Command[i].Name == "" || len(cs.Command[i].Param) < 1 {
			continue
		}
		param := cs.Command[i].Param[0].param
		idx := strings.LastIndex(param, " ")
		if idx == -1 || idx+1 == len(param) {
			panic("bad Param format")
		}
		// Global is the default.
		switch param[:idx] {
		case "VkInstance", "VkPhysicalDevice":
			cs.Command[i].kind = Instance
		case "VkDevice", "VkQueue", "VkCommandBuffer":
			if cs.Command[i].Name != "vkGetDeviceProcAddr" {
				cs.Command[i].kind = Device
			} else {
				// vkGetDeviceProcAddr is obtained from vkGetInstanceProcAddr
				// using a valid VkInstance handle.
				cs.Command[i].kind = Instance
			}
		}
	}
}

// FPName returns the name of a function pointer variable.
func (c *Command) FPName() []byte {
	v := []byte(c.Name)[2:]
	v[0] |= 0x20
	return v
}

// GenFP generates a function pointer variable.
func (c *Command) GenFP() string {
	if !strings.HasPrefix(c.Name, "vk") || !IsValidAPI(c.API) {
		return ""
	}
	var s strings.Builder
	s.WriteString("PFN_")
	s.WriteString(c.Name)
	s.WriteByte(' ')
	s.Write(c.FPName())
	return s.String()
}

// GenFPs generates declarations/definitions of all function pointer variables.
func (cs *Commands) GenFPs(decl bool) string {
	var s strings.Builder
	for i := range cs.Command {
		v := cs.Command[i].GenFP()
		if v != "" {
			if decl {
				s.WriteString("extern ")
				s.WriteString(v)
			} else {
				s.WriteString(v)
				s.WriteString(" = NULL")
			}
			s.WriteString(";\n")
		}
	}
	return s.String()[:len(s.String())-1]
}

// GenCWrapper generates a C function wrapping a function pointer call.
func (c *Command) GenCWrapper() string {
	if !strings.HasPrefix(c.Name, "vk") || !IsValidAPI(c.API) {
		return ""
	}
	var s strings.Builder
	s.WriteString("static inline ")
	s.WriteString(c.Type)
	s.WriteByte(' ')
	s.WriteString(c.Name)
	s.WriteByte('(')
	var hasPrev bool
	for i := range c.Param {
		if !IsValidAPI(c.Param[i].API) {
			continue
		}
		if hasPrev {
			s.WriteString(", ")
		} else {
			hasPrev = true
		}
		s.WriteString(c.Param[i].param)
	}
	s.WriteString(") {\n\t")
	if c.Type != "void" {
		s.WriteString("return ")
	}
	s.Write(c.FPName())
	s.WriteByte('(')
	hasPrev = false
	for i := range c.Param {
		if !IsValidAPI(c.Param[i].API) {
			continue
		}
		idx := strings.LastIndex(c.Param[i].param, " ")
		if idx == -1 || idx+1 == len(c.Param[i].param) {
			panic("bad Param format")
		}
		arg := strings.Split(c.Param[i].param[idx+1:], "[")[0]
		if hasPrev {
			s.WriteString(", ")
		} else {
			hasPrev = true
		}
		s.WriteString(arg)
	}
	s.WriteString(");\n}")
	return s.String()
}

// GenCWrappers generates a C wrapper function for each Command in Commands.
func (cs *Commands) GenCWrappers() string {
	var s strings.Builder
	for i := range cs.Command {
		w := cs.Command[i].GenCWrapper()
		if w != "" {
			s.WriteString("\n// ")
			s.WriteString(cs.Command[i].Name)
			s.WriteByte('\n')
			s.WriteString(w)
			s.WriteByte('\n')
		}
	}
	return s.String()[:len(s.String())-1]
}

// GenCGetProc generates a C expression that obtains a function pointer.
func (c *Command) GenCGetProc() string {
	if !strings.HasPrefix(c.Name, "vk") || !IsValidAPI(c.API) {
		return ""
	}
	if c.Name == "vkGetInstanceProcAddr" {
		// vkGetInstanceProcAddr is obtained by other means.
		return ""
	}
	var s strings.Builder
	s.WriteString("\tfp = ")
	switch c.kind {
	case Global:
		s.WriteString("getInstanceProcAddr(NULL")
	case Instance:
		s.WriteString("getInstanceProcAddr(dh")
	case Device:
		s.WriteString("getDeviceProcAddr(dh")
	}
	s.WriteString(", \"")
	s.WriteString(c.Name)
	s.WriteString("\");\n\t")
	s.Write(c.FPName())
	s.WriteString(" = (PFN_")
	s.WriteString(c.Name)
	s.WriteString(")fp;\n")
	return s.String()
}

// GenCGetProcs generates C functions that obtain the procedures.
func (cs *Commands) GenCGetProcs(decl bool) string {
	var s [3]strings.Builder
	s[Global].WriteString("void getGlobalProcs(void)")
	s[Instance].WriteString("void getInstanceProcs(VkInstance dh)")
	s[Device].WriteString("void getDeviceProcs(VkDevice dh)")
	if decl {
		for i := range s {
			s[i].WriteByte(';')
		}
	} else {
		for i := range s {
			s[i].WriteString(" {\n\tPFN_vkVoidFunction fp = NULL;\n")
		}
		for i := range cs.Command {
			x := cs.Command[i].GenCGetProc()
			if x == "" {
				continue
			}
			s[cs.Command[i].kind].WriteString(x)
		}
		s[Global].WriteString("}\n")
		s[Instance].WriteString("}\n")
		s[Device].WriteByte('}')
	}
	s[0].WriteByte('\n')
	s[0].WriteString(s[1].String())
	s[0].WriteByte('\n')
	s[0].WriteString(s[2].String())
	return s[0].String()
}

// GenCClearProc generates a C expression that sets a function pointer to NULL.
func (c *Command) GenCClearProc() string {
	if !strings.HasPrefix(c.Name, "vk") || !IsValidAPI(c.API) {
		return ""
	}
	if c.Name == "vkGetInstanceProcAddr" {
		// getInstanceProcAddr is left as is.
		return ""
	}
	var s strings.Builder
	s.WriteByte('\t')
	s.Write(c.FPName())
	s.WriteString(" = NULL;\n")
	return s.String()
}

// GenCClearProcs geneates a C function that clears the procedures.
func (cs *Commands) GenCClearProcs(decl bool) string {
	var s strings.Builder
	s.WriteString("void clearProcs(void)")
	if decl {
		s.WriteByte(';')
	} else {
		s.WriteString(" {\n")
		for i := range cs.Command {
			x := cs.Command[i].GenCClearProc()
			if x == "" {
				continue
			}
			s.WriteString(x)
		}
		s.WriteByte('}')
	}
	return s.String()
}

// GenHeaderVersion generates the informational header version.
func (t *Types) GenHeaderVersion() string {
	var patch, compl string
	for i := range t.Type {
		if !IsValidAPI(t.Type[i].API) {
			continue
		}
		switch strings.TrimSpace(t.Type[i].Name) {
		case "VK_HEADER_VERSION":
			patch = strings.SplitAfter(t.Type[i].CharData, "#define")[1]
			patch = strings.TrimSpace(patch)
			if compl != "" {
				break
			}
		case "VK_HEADER_VERSION_COMPLETE":
			compl = strings.SplitAfter(t.Type[i].CharData, "#define")[1]
			compl = strings.TrimSpace(compl)
			compl = strings.Trim(compl, "()")
			if patch != "" {
				break
			}
		}
	}
	if patch == "" || compl == "" {
		panic("could not find header version in Types")
	}
	s := strings.Replace(compl, "VK_HEADER_VERSION", patch, 1)
	s = strings.ReplaceAll(s, ", ", ".")
	return s
}

const CHeader = `// Code generated by procgen.go. DO NOT EDIT.
// [vk.xml %s]

#ifndef PROC_H
#define PROC_H

#define VK_NO_PROTOTYPES
#include <vulkan/vulkan.h>

// Function pointers.
%s

// Functions that obtain the function pointers.
// The process of obtaining the procedures for use is as follows:
//
// 1. Fetch the vkGetInstanceProcAddr symbol and assign to getInstanceProcAddr.
// 2. Call getGlobalProcs to load global procedures.
// 3. Create a valid VkInstance and use it in a call to getInstanceProcs.
// 4. Create a valid VkDevice and use it in a call to getDeviceProcs.
//
// clearProcs can be used to set all function pointers other than
// getInstanceProcAddr to NULL.
%s
%s

// Functions that wrap calls to function pointers. Used by Go code.
%s

#endif // PROC_H
`

const CSource = `// Code generated by procgen.go. DO NOT EDIT.

// [vk.xml %s]

#include <proc.h>

%s

%s

%s
`

// GenCCode generates the C header (proc.h) and the C source (proc.c).
func (r *Registry) GenCCode() (hdr, src string) {
	v := r.Types.GenHeaderVersion()
	cs := &r.Commands
	hdr = fmt.Sprintf(CHeader, v, cs.GenFPs(true), cs.GenCGetProcs(true), cs.GenCClearProcs(true), cs.GenCWrappers())
	src = fmt.Sprintf(CSource, v, cs.GenFPs(false), cs.GenCGetProcs(false), cs.GenCClearProcs(false))
	return
}

func main() {
	if len(os.Args) <= 1 {
		os.Stderr.Write([]byte("procgen.go: error: no XML input provided\n"))
		os.Exit(1)
	}
	file, err := os.Open(os.Args[1])
	if err != nil {
		os.Stderr.Write([]byte("procgen.go: error: " + err.Error() + "\n"))
		os.Exit(1)
	}
	defer file.Close()

	v := &Registry{}
	err = xml.NewDecoder(file).Decode(v)
	if err != nil {
		os.Stderr.Write([]byte("procgen.go: error: " + err.Error() + "\n"))
		os.Exit(1)
	}
	v.Commands.Filter()
	v.Commands.Distinguish()

	chdr, csrc := v.GenCCode()
	err = os.WriteFile("proc.h", []byte(chdr), 0666)
	if err != nil {
		os.Stderr.Write([]byte("procgen.go: error: " + err.Error() + "\n"))
		os.Exit(1)
	}
	err = os.WriteFile("proc.c", []byte(csrc), 0666)
	if err != nil {
		os.Stderr.Write([]byte("procgen.go: error: " + err.Error() + "\n"))
		os.Exit(1)
	}
}
