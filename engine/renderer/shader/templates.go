package shader

// SurfaceVertexTemplate is the builtin geometry vertex stage shared by the
// default and custom surface programs.
const SurfaceVertexTemplate = `#version 450

layout(location = 0) in vec3 inPosition;
layout(location = 1) in vec2 inTexCoord;
layout(location = 2) in vec3 inNormal;
layout(location = 3) in vec4 inTangent;
layout(location = 4) in vec4 inColor;
layout(location = 5) in uvec4 inBoneIDs;
layout(location = 6) in vec4 inBoneWeights;
layout(location = 7) in vec4 inInstanceMatCol0;
layout(location = 8) in vec4 inInstanceMatCol1;
layout(location = 9) in vec4 inInstanceMatCol2;
layout(location = 10) in vec4 inInstanceMatCol3;
layout(location = 11) in vec4 inInstanceColor;

uniform mat4 uMatModel;
uniform mat4 uMatNormal;
uniform mat4 uMatVP;
uniform mat4 uBillboardView;
uniform vec2 uTexCoordOffset;
uniform vec2 uTexCoordScale;
uniform int uInstancing;
uniform int uSkinning;
uniform int uBillboard;
uniform sampler2D uTexBoneMatrices;

layout(location = 0) out vec2 vTexCoord;
layout(location = 1) out vec3 vNormal;
layout(location = 2) out vec3 vWorldPos;
layout(location = 3) out vec4 vColor;
layout(location = 4) out mat3 vTBN;

mat4 boneMatrix(uint id) {
    return mat4(
        texelFetch(uTexBoneMatrices, ivec2(0, int(id)), 0),
        texelFetch(uTexBoneMatrices, ivec2(1, int(id)), 0),
        texelFetch(uTexBoneMatrices, ivec2(2, int(id)), 0),
        texelFetch(uTexBoneMatrices, ivec2(3, int(id)), 0));
}

void main() {
    vec4 position = vec4(inPosition, 1.0);
    vec3 normal = inNormal;

    if (uSkinning != 0) {
        mat4 skin =
            inBoneWeights.x * boneMatrix(inBoneIDs.x) +
            inBoneWeights.y * boneMatrix(inBoneIDs.y) +
            inBoneWeights.z * boneMatrix(inBoneIDs.z) +
            inBoneWeights.w * boneMatrix(inBoneIDs.w);
        position = skin * position;
        normal = mat3(skin) * normal;
    }

    mat4 model = uMatModel;
    mat3 normalMat = mat3(uMatNormal);
    if (uInstancing != 0) {
        mat4 instance = mat4(inInstanceMatCol0, inInstanceMatCol1, inInstanceMatCol2, inInstanceMatCol3);
        model = model * instance;
        normalMat = normalMat * transpose(inverse(mat3(instance)));
    }
    if (uBillboard != 0) {
        model = model * uBillboardView;
    }

    vec4 world = model * position;
    vWorldPos = world.xyz;
    vTexCoord = inTexCoord * uTexCoordScale + uTexCoordOffset;
    vNormal = normalize(normalMat * normal);
    vColor = inColor;
    if (uInstancing != 0) {
        vColor *= inInstanceColor;
    }

    vec3 tangent = normalize(mat3(model) * inTangent.xyz);
    vec3 bitangent = cross(vNormal, tangent) * inTangent.w;
    vTBN = mat3(tangent, bitangent, vNormal);

    gl_Position = uMatVP * world;
}
`

// SurfaceFragmentTemplate is the builtin geometry fragment stage. The user
// fragment marker line is replaced by custom shading logic; user uniform
// declarations are hoisted after the #version line.
const SurfaceFragmentTemplate = `#version 450

layout(location = 0) in vec2 vTexCoord;
layout(location = 1) in vec3 vNormal;
layout(location = 2) in vec3 vWorldPos;
layout(location = 3) in vec4 vColor;
layout(location = 4) in mat3 vTBN;

uniform sampler2D uTexAlbedo;
uniform sampler2D uTexNormal;
uniform sampler2D uTexEmission;
uniform sampler2D uTexORM;
uniform vec4 uAlbedoColor;
uniform vec3 uEmissionColor;
uniform float uEmissionEnergy;
uniform float uNormalScale;
uniform float uAlphaCutoff;
uniform float uOcclusion;
uniform float uRoughness;
uniform float uMetalness;

layout(location = 0) out vec4 outAlbedo;
layout(location = 1) out vec4 outEmission;
layout(location = 2) out vec2 outNormal;
layout(location = 3) out vec4 outORM;

vec2 encodeOctahedral(vec3 n) {
    n /= abs(n.x) + abs(n.y) + abs(n.z);
    vec2 e = n.xy;
    if (n.z < 0.0) {
        e = (1.0 - abs(n.yx)) * vec2(n.x >= 0.0 ? 1.0 : -1.0, n.y >= 0.0 ? 1.0 : -1.0);
    }
    return e * 0.5 + 0.5;
}

void main() {
    vec4 albedo = texture(uTexAlbedo, vTexCoord) * uAlbedoColor * vColor;
    if (albedo.a < uAlphaCutoff) discard;

    vec3 tangentNormal = texture(uTexNormal, vTexCoord).xyz * 2.0 - 1.0;
    tangentNormal.xy *= uNormalScale;
    vec3 normal = normalize(vTBN * tangentNormal);

    vec3 emission = texture(uTexEmission, vTexCoord).rgb * uEmissionColor * uEmissionEnergy;
    vec3 orm = texture(uTexORM, vTexCoord).rgb;
    float occlusion = orm.r * uOcclusion;
    float roughness = orm.g * uRoughness;
    float metalness = orm.b * uMetalness;

#define USER_FRAGMENT_MARKER 0

    outAlbedo = vec4(albedo.rgb, 1.0);
    outEmission = vec4(emission, 1.0);
    outNormal = encodeOctahedral(normal);
    outORM = vec4(occlusion, roughness, metalness, 1.0);
}
`
