package vulkan

import (
	"encoding/binary"
	"fmt"
	gomath "math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/renderer/gpu"
)

// The pass code writes uniforms by name the way OpenGL-era renderers do.
// Vulkan has no loose uniforms, so CompileProgram rewrites every non-sampler
// declaration into one std140 block at set 0 binding 0 and gives each sampler
// an explicit binding. Uniform writes land in a CPU shadow of the block; each
// draw copies the shadow into a per-frame ring buffer and binds a descriptor
// set with the textures resolved from their slots.

const (
	uniformBlockBinding = 0
	samplerBindingBase  = 1
	maxSamplerBindings  = 16
)

type uniformField struct {
	Name    string
	Type    gpu.UniformType
	Arity   int32
	Offset  uint32
	Size    uint32
	TexSlot int32 // samplers only; mutable via SetUniformInt
	Binding uint32
	Cube    bool
}

type vulkanProgram struct {
	Name string

	VertexModule   vk.ShaderModule
	FragmentModule vk.ShaderModule
	StageInfos     []vk.PipelineShaderStageCreateInfo

	Fields       map[string]*uniformField
	Samplers     []*uniformField // in binding order
	BlockMembers []string        // GLSL block member declarations, in offset order
	BlockSize    uint32
	Shadow       []byte

	VertexLayout vertexLayoutKind

	DescriptorSetLayout vk.DescriptorSetLayout
	PipelineLayout      vk.PipelineLayout

	Pipelines map[pipelineKey]vk.Pipeline
}

type vertexLayoutKind uint8

const (
	vertexLayoutNone vertexLayoutKind = iota
	vertexLayoutSurface
)

func newVulkanProgram(context *VulkanContext, name, vertexSrc, fragmentSrc string) (*vulkanProgram, error) {
	prog := &vulkanProgram{
		Name:      name,
		Fields:    make(map[string]*uniformField),
		Pipelines: make(map[pipelineKey]vk.Pipeline),
	}

	if strings.Contains(vertexSrc, "layout(location = 0) in vec3 inPosition") {
		prog.VertexLayout = vertexLayoutSurface
	}

	// Collect uniform declarations from both stages into one layout.
	structs := parseStructs(vertexSrc)
	for name, fields := range parseStructs(fragmentSrc) {
		structs[name] = fields
	}
	decls := parseUniformDecls(vertexSrc, structs)
	for _, d := range parseUniformDecls(fragmentSrc, structs) {
		if !containsDecl(decls, d.Name) {
			decls = append(decls, d)
		}
	}

	prog.layoutUniforms(decls)

	rewrittenVert := rewriteForVulkan(vertexSrc, prog)
	rewrittenFrag := rewriteForVulkan(fragmentSrc, prog)

	vertSPV, err := compileGLSL(name+".vert", rewrittenVert)
	if err != nil {
		return nil, err
	}
	fragSPV, err := compileGLSL(name+".frag", rewrittenFrag)
	if err != nil {
		return nil, err
	}

	prog.VertexModule, err = shaderModuleCreate(context, vertSPV)
	if err != nil {
		return nil, err
	}
	prog.FragmentModule, err = shaderModuleCreate(context, fragSPV)
	if err != nil {
		return nil, err
	}

	prog.StageInfos = []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: prog.VertexModule,
			PName:  VulkanSafeString("main"),
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: prog.FragmentModule,
			PName:  VulkanSafeString("main"),
		},
	}

	if err := prog.createLayouts(context); err != nil {
		return nil, err
	}

	core.LogDebug("compiled program '%s' (%d uniform bytes, %d samplers)", name, prog.BlockSize, len(prog.Samplers))
	return prog, nil
}

func (p *vulkanProgram) destroy(context *VulkanContext) {
	for _, pipeline := range p.Pipelines {
		vk.DestroyPipeline(context.Device.LogicalDevice, pipeline, context.Allocator)
	}
	p.Pipelines = nil
	if p.PipelineLayout != nil {
		vk.DestroyPipelineLayout(context.Device.LogicalDevice, p.PipelineLayout, context.Allocator)
		p.PipelineLayout = nil
	}
	if p.DescriptorSetLayout != nil {
		vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, p.DescriptorSetLayout, context.Allocator)
		p.DescriptorSetLayout = nil
	}
	if p.VertexModule != nil {
		vk.DestroyShaderModule(context.Device.LogicalDevice, p.VertexModule, context.Allocator)
		p.VertexModule = nil
	}
	if p.FragmentModule != nil {
		vk.DestroyShaderModule(context.Device.LogicalDevice, p.FragmentModule, context.Allocator)
		p.FragmentModule = nil
	}
}

func (p *vulkanProgram) uniformInfos() []gpu.UniformInfo {
	infos := make([]gpu.UniformInfo, 0, len(p.Fields))
	for _, f := range p.Fields {
		infos = append(infos, gpu.UniformInfo{
			Name:    f.Name,
			Type:    f.Type,
			Arity:   f.Arity,
			TexSlot: f.TexSlot,
		})
	}
	return infos
}

type uniformDecl struct {
	Name     string
	TypeName string
	Arity    int32
	Struct   []uniformDecl // non-nil for struct types, flattened fields
}

func containsDecl(decls []uniformDecl, name string) bool {
	for _, d := range decls {
		if d.Name == name {
			return true
		}
	}
	return false
}

// parseStructs extracts struct definitions so struct-typed uniform arrays
// (the forward light array) can be flattened into the block layout.
func parseStructs(src string) map[string][]uniformDecl {
	structs := make(map[string][]uniformDecl)
	rest := src
	for {
		idx := strings.Index(rest, "struct ")
		if idx < 0 {
			break
		}
		rest = rest[idx+len("struct "):]
		brace := strings.Index(rest, "{")
		endBrace := strings.Index(rest, "}")
		if brace < 0 || endBrace < 0 || endBrace < brace {
			break
		}
		name := strings.TrimSpace(rest[:brace])
		body := rest[brace+1 : endBrace]
		var fields []uniformDecl
		for _, line := range strings.Split(body, ";") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			parts := strings.Fields(line)
			if len(parts) != 2 {
				continue
			}
			fields = append(fields, uniformDecl{Name: parts[1], TypeName: parts[0], Arity: 1})
		}
		structs[name] = fields
		rest = rest[endBrace+1:]
	}
	return structs
}

func parseUniformDecls(src string, structs map[string][]uniformDecl) []uniformDecl {
	var decls []uniformDecl
	for _, line := range strings.Split(src, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "uniform ") {
			continue
		}
		line = strings.TrimSuffix(line, ";")
		parts := strings.Fields(line)
		if len(parts) != 3 {
			continue
		}
		typeName, name := parts[1], parts[2]
		arity := int32(1)
		if open := strings.Index(name, "["); open >= 0 {
			closeIdx := strings.Index(name, "]")
			if closeIdx > open {
				if n, err := strconv.Atoi(name[open+1 : closeIdx]); err == nil {
					arity = int32(n)
				}
			}
			name = name[:open]
		}
		decl := uniformDecl{Name: name, TypeName: typeName, Arity: arity}
		if fields, ok := structs[typeName]; ok {
			decl.Struct = fields
		}
		decls = append(decls, decl)
	}
	return decls
}

func uniformTypeOf(typeName string) (gpu.UniformType, bool) {
	switch typeName {
	case "float":
		return gpu.UniformFloat, true
	case "int":
		return gpu.UniformInt, true
	case "vec2":
		return gpu.UniformVec2, true
	case "vec3":
		return gpu.UniformVec3, true
	case "vec4":
		return gpu.UniformVec4, true
	case "mat4":
		return gpu.UniformMat4, true
	case "sampler2D", "samplerCube":
		return gpu.UniformSampler2D, true
	default:
		return 0, false
	}
}

// std140 scalar alignment and size per type.
func std140Layout(t gpu.UniformType) (align, size uint32) {
	switch t {
	case gpu.UniformFloat, gpu.UniformInt:
		return 4, 4
	case gpu.UniformVec2:
		return 8, 8
	case gpu.UniformVec3:
		return 16, 12
	case gpu.UniformVec4:
		return 16, 16
	case gpu.UniformMat4:
		return 16, 64
	default:
		return 4, 4
	}
}

func alignUp(v, a uint32) uint32 {
	return (v + a - 1) / a * a
}

// layoutUniforms assigns std140 offsets to every non-sampler field and
// ascending bindings to samplers. Struct arrays flatten into per-element
// per-field entries ("uLights[0].energy") matching the names the passes use.
func (p *vulkanProgram) layoutUniforms(decls []uniformDecl) {
	offset := uint32(0)
	samplerBinding := uint32(samplerBindingBase)

	addField := func(name string, t gpu.UniformType, arity int32) {
		align, size := std140Layout(t)
		if arity > 1 {
			// Array elements round up to vec4 stride.
			align = alignUp(align, 16)
			size = alignUp(size, 16) * uint32(arity)
		}
		offset = alignUp(offset, align)
		p.Fields[name] = &uniformField{
			Name: name, Type: t, Arity: arity,
			Offset: offset, Size: size, TexSlot: -1,
		}
		decl := fmt.Sprintf("layout(offset = %d) %s %s", offset, glslTypeName(t), name)
		if arity > 1 {
			decl = fmt.Sprintf("layout(offset = %d) %s %s[%d]", offset, glslTypeName(t), name, arity)
		}
		p.BlockMembers = append(p.BlockMembers, decl+";")
		offset += size
	}

	for _, d := range decls {
		t, ok := uniformTypeOf(d.TypeName)
		if !ok && d.Struct == nil {
			continue
		}

		if d.Struct != nil {
			// std140 structs align to 16 and round their size to 16. The
			// struct stays intact in the GLSL block so dynamically indexed
			// accesses keep working; the flattened per-element fields exist
			// only for the CPU-side writers.
			elemBase := uint32(0)
			type flatField struct {
				name  string
				t     gpu.UniformType
				inner uint32
			}
			var flat []flatField
			for _, f := range d.Struct {
				ft, ok := uniformTypeOf(f.TypeName)
				if !ok {
					continue
				}
				align, size := std140Layout(ft)
				elemBase = alignUp(elemBase, align)
				flat = append(flat, flatField{name: f.Name, t: ft, inner: elemBase})
				elemBase += size
			}
			stride := alignUp(elemBase, 16)
			offset = alignUp(offset, 16)
			for i := int32(0); i < d.Arity; i++ {
				base := offset + uint32(i)*stride
				for _, f := range flat {
					name := fmt.Sprintf("%s[%d].%s", d.Name, i, f.name)
					_, size := std140Layout(f.t)
					p.Fields[name] = &uniformField{
						Name: name, Type: f.t, Arity: 1,
						Offset: base + f.inner, Size: size, TexSlot: -1,
					}
				}
			}
			p.BlockMembers = append(p.BlockMembers,
				fmt.Sprintf("layout(offset = %d) %s %s[%d];", offset, d.TypeName, d.Name, d.Arity))
			offset += stride * uint32(d.Arity)
			continue
		}

		if t == gpu.UniformSampler2D {
			field := &uniformField{
				Name: d.Name, Type: t, Arity: d.Arity,
				TexSlot: int32(samplerBinding - samplerBindingBase),
				Binding: samplerBinding,
				Cube:    d.TypeName == "samplerCube",
			}
			p.Fields[d.Name] = field
			p.Samplers = append(p.Samplers, field)
			samplerBinding++
			continue
		}

		addField(d.Name, t, d.Arity)
	}

	p.BlockSize = alignUp(offset, 16)
	if p.BlockSize == 0 {
		p.BlockSize = 16
	}
	p.Shadow = make([]byte, p.BlockSize)
}

// rewriteForVulkan strips loose uniform declarations and injects the shared
// std140 block plus decorated sampler declarations after the last struct
// definition or the #version line. Struct definitions stay in place since
// the block references them.
func rewriteForVulkan(src string, prog *vulkanProgram) string {
	lines := strings.Split(src, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "uniform ") {
			continue
		}
		kept = append(kept, line)
	}

	var block strings.Builder
	block.WriteString(fmt.Sprintf("layout(std140, set = 0, binding = %d) uniform Globals {\n", uniformBlockBinding))
	for _, member := range prog.BlockMembers {
		block.WriteString("    " + member + "\n")
	}
	block.WriteString("};\n")
	for _, s := range prog.Samplers {
		kind := "sampler2D"
		if s.Cube {
			kind = "samplerCube"
		}
		block.WriteString(fmt.Sprintf("layout(set = 0, binding = %d) uniform %s %s;\n", s.Binding, kind, s.Name))
	}

	// The block goes after the final struct close so struct-typed members
	// resolve; without structs it follows the #version line.
	insertAfter := 0
	depth := 0
	for i, line := range kept {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#version") {
			insertAfter = i + 1
		}
		if strings.HasPrefix(trimmed, "struct ") {
			depth++
		}
		if depth > 0 && strings.HasPrefix(trimmed, "};") {
			depth--
			if depth == 0 {
				insertAfter = i + 1
			}
		}
	}

	var out strings.Builder
	for i, line := range kept {
		out.WriteString(line)
		out.WriteString("\n")
		if i == insertAfter-1 {
			out.WriteString(block.String())
		}
	}
	if insertAfter == 0 {
		return block.String() + out.String()
	}
	return out.String()
}

func glslTypeName(t gpu.UniformType) string {
	switch t {
	case gpu.UniformInt:
		return "int"
	case gpu.UniformVec2:
		return "vec2"
	case gpu.UniformVec3:
		return "vec3"
	case gpu.UniformVec4:
		return "vec4"
	case gpu.UniformMat4:
		return "mat4"
	default:
		return "float"
	}
}

// compileGLSL shells out to glslangValidator. Shipping a GLSL frontend is
// out of scope; the validator is a hard runtime dependency, same as the
// Vulkan loader itself.
func compileGLSL(fileName, src string) ([]uint32, error) {
	dir, err := os.MkdirTemp("", "prisma-shader-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	srcPath := filepath.Join(dir, fileName)
	spvPath := srcPath + ".spv"
	if err := os.WriteFile(srcPath, []byte(src), 0o600); err != nil {
		return nil, err
	}

	cmd := exec.Command("glslangValidator", "-V", "-o", spvPath, srcPath)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("shader '%s' failed to compile: %s", fileName, strings.TrimSpace(string(output)))
	}

	raw, err := os.ReadFile(spvPath)
	if err != nil {
		return nil, err
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("shader '%s': SPIR-V size not a word multiple", fileName)
	}
	words := make([]uint32, len(raw)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}
	return words, nil
}

func shaderModuleCreate(context *VulkanContext, spv []uint32) (vk.ShaderModule, error) {
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(spv) * 4),
		PCode:    spv,
	}
	var module vk.ShaderModule
	if res := vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &module); res != vk.Success {
		return nil, fmt.Errorf("failed to create shader module: %s", VulkanResultString(res, true))
	}
	return module, nil
}

func (p *vulkanProgram) createLayouts(context *VulkanContext) error {
	bindings := []vk.DescriptorSetLayoutBinding{
		{
			Binding:         uniformBlockBinding,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		},
	}
	for _, s := range p.Samplers {
		bindings = append(bindings, vk.DescriptorSetLayoutBinding{
			Binding:         s.Binding,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		})
	}

	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	var setLayout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &layoutInfo, context.Allocator, &setLayout); res != vk.Success {
		return fmt.Errorf("failed to create descriptor set layout for '%s': %s", p.Name, VulkanResultString(res, true))
	}
	p.DescriptorSetLayout = setLayout

	pipelineLayoutInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: 1,
		PSetLayouts:    []vk.DescriptorSetLayout{setLayout},
	}
	var pipelineLayout vk.PipelineLayout
	if res := vk.CreatePipelineLayout(context.Device.LogicalDevice, &pipelineLayoutInfo, context.Allocator, &pipelineLayout); res != vk.Success {
		return fmt.Errorf("failed to create pipeline layout for '%s': %s", p.Name, VulkanResultString(res, true))
	}
	p.PipelineLayout = pipelineLayout
	return nil
}

// Shadow block writers.

func (p *vulkanProgram) writeFloats(name string, values ...float32) {
	f, ok := p.Fields[name]
	if !ok || f.TexSlot >= 0 {
		return
	}
	for i, v := range values {
		at := f.Offset + uint32(i)*4
		if at+4 > uint32(len(p.Shadow)) {
			return
		}
		binary.LittleEndian.PutUint32(p.Shadow[at:], gomath.Float32bits(v))
	}
}

func (p *vulkanProgram) writeInt(name string, v int32) {
	f, ok := p.Fields[name]
	if !ok {
		return
	}
	if f.Type == gpu.UniformSampler2D {
		f.TexSlot = v
		return
	}
	if f.Offset+4 > uint32(len(p.Shadow)) {
		return
	}
	binary.LittleEndian.PutUint32(p.Shadow[f.Offset:], uint32(v))
}
