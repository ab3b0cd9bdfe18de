package passes

// Builtin pass programs. The surface (geometry) programs live in the shader
// package; everything here is either a full-screen stage or a fixed small
// raster stage.

const fullscreenVertexSrc = `#version 450

layout(location = 0) out vec2 vTexCoord;

void main() {
    vTexCoord = vec2((gl_VertexIndex << 1) & 2, gl_VertexIndex & 2);
    gl_Position = vec4(vTexCoord * 2.0 - 1.0, 0.99999, 1.0);
}
`

const cubeVertexSrc = `#version 450

layout(location = 0) in vec3 inPosition;

uniform mat4 uMatModel;
uniform mat4 uMatVP;

layout(location = 0) out vec3 vLocalPos;

void main() {
    vLocalPos = inPosition;
    gl_Position = uMatVP * uMatModel * vec4(inPosition, 1.0);
}
`

// depthFragSrc serves both the shadow pass and the scene depth prepass; the
// cutoff uniform decides which alpha-tested fragments survive.
const depthFragSrc = `#version 450

layout(location = 0) in vec2 vTexCoord;

uniform sampler2D uTexAlbedo;
uniform vec4 uAlbedoColor;
uniform float uAlphaCutoff;

void main() {
    float alpha = texture(uTexAlbedo, vTexCoord).a * uAlbedoColor.a;
    if (alpha < uAlphaCutoff) discard;
}
`

const decalFragSrc = `#version 450

layout(location = 0) in vec3 vLocalPos;

uniform sampler2D uTexDepth;
uniform sampler2D uTexAlbedo;
uniform sampler2D uTexNormal;
uniform sampler2D uTexEmission;
uniform sampler2D uTexORM;
uniform mat4 uMatInvModel;
uniform mat4 uMatInvViewProj;
uniform vec2 uScreenSize;
uniform vec4 uAlbedoColor;
uniform vec3 uEmissionColor;
uniform float uEmissionEnergy;

layout(location = 0) out vec4 outAlbedo;
layout(location = 1) out vec4 outEmission;

void main() {
    vec2 uv = gl_FragCoord.xy / uScreenSize;
    float depth = texture(uTexDepth, uv).r;
    vec4 world = uMatInvViewProj * vec4(uv * 2.0 - 1.0, depth, 1.0);
    world /= world.w;

    vec3 local = (uMatInvModel * world).xyz;
    if (any(greaterThan(abs(local), vec3(0.5)))) discard;

    vec2 decalUV = local.xz + 0.5;
    vec4 albedo = texture(uTexAlbedo, decalUV) * uAlbedoColor;
    outAlbedo = albedo;
    outEmission = vec4(texture(uTexEmission, decalUV).rgb * uEmissionColor * uEmissionEnergy, albedo.a);
}
`

const ssaoFragSrc = `#version 450

layout(location = 0) in vec2 vTexCoord;

uniform sampler2D uTexDepth;
uniform sampler2D uTexNormal;
uniform mat4 uMatProj;
uniform mat4 uMatInvProj;
uniform float uRadius;
uniform float uBias;
uniform float uIntensity;
uniform float uPower;

layout(location = 0) out float outOcclusion;

vec3 decodeOctahedral(vec2 e) {
    e = e * 2.0 - 1.0;
    vec3 n = vec3(e, 1.0 - abs(e.x) - abs(e.y));
    if (n.z < 0.0) {
        n.xy = (1.0 - abs(n.yx)) * vec2(n.x >= 0.0 ? 1.0 : -1.0, n.y >= 0.0 ? 1.0 : -1.0);
    }
    return normalize(n);
}

vec3 viewPos(vec2 uv) {
    float depth = texture(uTexDepth, uv).r;
    vec4 p = uMatInvProj * vec4(uv * 2.0 - 1.0, depth, 1.0);
    return p.xyz / p.w;
}

void main() {
    vec3 pos = viewPos(vTexCoord);
    vec3 normal = decodeOctahedral(texture(uTexNormal, vTexCoord).rg);

    float occlusion = 0.0;
    const int SAMPLES = 16;
    for (int i = 0; i < SAMPLES; i++) {
        float a = float(i) * 2.39996; // golden angle
        float r = uRadius * sqrt((float(i) + 0.5) / float(SAMPLES));
        vec3 offset = vec3(cos(a) * r, sin(a) * r, 0.0);
        vec3 sampleView = pos + offset;

        vec4 clip = uMatProj * vec4(sampleView, 1.0);
        vec2 uv = clip.xy / clip.w * 0.5 + 0.5;
        vec3 actual = viewPos(uv);

        float rangeCheck = smoothstep(0.0, 1.0, uRadius / abs(pos.z - actual.z));
        occlusion += (actual.z >= sampleView.z + uBias ? 1.0 : 0.0) * rangeCheck;
    }
    occlusion = 1.0 - occlusion / float(SAMPLES) * uIntensity;
    outOcclusion = pow(clamp(occlusion, 0.0, 1.0), uPower);
}
`

const ssilFragSrc = `#version 450

layout(location = 0) in vec2 vTexCoord;

uniform sampler2D uTexDepth;
uniform sampler2D uTexNormal;
uniform sampler2D uTexDiffuse;
uniform mat4 uMatProj;
uniform mat4 uMatInvProj;
uniform int uSampleCount;
uniform float uSampleRadius;
uniform float uHitThickness;
uniform float uEnergy;

layout(location = 0) out vec4 outIndirect;

vec3 viewPos(vec2 uv) {
    float depth = texture(uTexDepth, uv).r;
    vec4 p = uMatInvProj * vec4(uv * 2.0 - 1.0, depth, 1.0);
    return p.xyz / p.w;
}

void main() {
    vec3 pos = viewPos(vTexCoord);
    vec3 indirect = vec3(0.0);

    for (int i = 0; i < uSampleCount; i++) {
        float a = float(i) * 2.39996;
        float r = uSampleRadius * sqrt((float(i) + 0.5) / float(uSampleCount));
        vec2 offset = vec2(cos(a), sin(a)) * r;

        vec4 clip = uMatProj * vec4(pos + vec3(offset, 0.0), 1.0);
        vec2 uv = clip.xy / clip.w * 0.5 + 0.5;
        vec3 neighbor = viewPos(uv);
        if (abs(neighbor.z - pos.z) > uHitThickness) continue;

        indirect += texture(uTexDiffuse, uv).rgb;
    }
    outIndirect = vec4(indirect / float(max(uSampleCount, 1)) * uEnergy, 1.0);
}
`

const ssrFragSrc = `#version 450

layout(location = 0) in vec2 vTexCoord;

uniform sampler2D uTexDepth;
uniform sampler2D uTexNormal;
uniform sampler2D uTexScene;
uniform mat4 uMatProj;
uniform mat4 uMatInvProj;
uniform int uMaxRaySteps;
uniform int uBinarySearchSteps;
uniform float uRayMarchLength;
uniform float uDepthThickness;
uniform float uEdgeFadeStart;
uniform float uEdgeFadeEnd;

layout(location = 0) out vec4 outReflection;

vec3 decodeOctahedral(vec2 e) {
    e = e * 2.0 - 1.0;
    vec3 n = vec3(e, 1.0 - abs(e.x) - abs(e.y));
    if (n.z < 0.0) {
        n.xy = (1.0 - abs(n.yx)) * vec2(n.x >= 0.0 ? 1.0 : -1.0, n.y >= 0.0 ? 1.0 : -1.0);
    }
    return normalize(n);
}

vec3 viewPos(vec2 uv) {
    float depth = texture(uTexDepth, uv).r;
    vec4 p = uMatInvProj * vec4(uv * 2.0 - 1.0, depth, 1.0);
    return p.xyz / p.w;
}

void main() {
    vec3 pos = viewPos(vTexCoord);
    vec3 normal = decodeOctahedral(texture(uTexNormal, vTexCoord).rg);
    vec3 dir = normalize(reflect(normalize(pos), normal));

    vec3 step = dir * (uRayMarchLength / float(uMaxRaySteps));
    vec3 ray = pos;
    vec2 hitUV = vec2(-1.0);

    for (int i = 0; i < uMaxRaySteps; i++) {
        ray += step;
        vec4 clip = uMatProj * vec4(ray, 1.0);
        vec2 uv = clip.xy / clip.w * 0.5 + 0.5;
        if (any(lessThan(uv, vec2(0.0))) || any(greaterThan(uv, vec2(1.0)))) break;

        float delta = viewPos(uv).z - ray.z;
        if (delta > 0.0 && delta < uDepthThickness) {
            for (int j = 0; j < uBinarySearchSteps; j++) {
                step *= 0.5;
                clip = uMatProj * vec4(ray, 1.0);
                uv = clip.xy / clip.w * 0.5 + 0.5;
                ray += (viewPos(uv).z - ray.z) > 0.0 ? -step : step;
            }
            hitUV = uv;
            break;
        }
    }

    if (hitUV.x < 0.0) {
        outReflection = vec4(0.0);
        return;
    }

    vec2 edge = abs(hitUV - 0.5) * 2.0;
    float fade = 1.0 - smoothstep(uEdgeFadeStart, uEdgeFadeEnd, max(edge.x, edge.y));
    outReflection = vec4(texture(uTexScene, hitUV).rgb * fade, fade);
}
`

const blurFragSrc = `#version 450

layout(location = 0) in vec2 vTexCoord;

uniform sampler2D uTexSource;
uniform vec2 uDirection;

layout(location = 0) out vec4 outColor;

void main() {
    vec2 texel = 1.0 / vec2(textureSize(uTexSource, 0));
    vec4 sum = texture(uTexSource, vTexCoord) * 0.2270270270;
    sum += texture(uTexSource, vTexCoord + uDirection * texel * 1.3846153846) * 0.3162162162;
    sum += texture(uTexSource, vTexCoord - uDirection * texel * 1.3846153846) * 0.3162162162;
    sum += texture(uTexSource, vTexCoord + uDirection * texel * 3.2307692308) * 0.0702702703;
    sum += texture(uTexSource, vTexCoord - uDirection * texel * 3.2307692308) * 0.0702702703;
    outColor = sum;
}
`

const ambientFragSrc = `#version 450

layout(location = 0) in vec2 vTexCoord;

uniform sampler2D uTexAlbedo;
uniform sampler2D uTexNormal;
uniform sampler2D uTexORM;
uniform sampler2D uTexSSAO;
uniform sampler2D uTexSSIL;
uniform sampler2D uTexSSR;
uniform samplerCube uTexIrradiance;
uniform samplerCube uTexPrefilter;
uniform mat4 uMatInvView;
uniform vec3 uAmbientColor;
uniform float uAmbientEnergy;
uniform float uLightAffect;
uniform int uHasSky;
uniform vec4 uSkyRotation;

layout(location = 0) out vec4 outDiffuse;
layout(location = 1) out vec4 outSpecular;

vec3 decodeOctahedral(vec2 e) {
    e = e * 2.0 - 1.0;
    vec3 n = vec3(e, 1.0 - abs(e.x) - abs(e.y));
    if (n.z < 0.0) {
        n.xy = (1.0 - abs(n.yx)) * vec2(n.x >= 0.0 ? 1.0 : -1.0, n.y >= 0.0 ? 1.0 : -1.0);
    }
    return normalize(n);
}

vec3 rotateByQuat(vec3 v, vec4 q) {
    return v + 2.0 * cross(q.xyz, cross(q.xyz, v) + q.w * v);
}

void main() {
    vec3 albedo = texture(uTexAlbedo, vTexCoord).rgb;
    vec3 orm = texture(uTexORM, vTexCoord).rgb;
    vec3 normal = decodeOctahedral(texture(uTexNormal, vTexCoord).rg);
    vec3 worldNormal = mat3(uMatInvView) * normal;

    float ao = texture(uTexSSAO, vTexCoord).r * orm.r;
    ao = mix(1.0, ao, 1.0 - uLightAffect);

    vec3 diffuse;
    vec3 specular;
    if (uHasSky != 0) {
        vec3 dir = rotateByQuat(worldNormal, uSkyRotation);
        diffuse = texture(uTexIrradiance, dir).rgb * albedo;
        specular = textureLod(uTexPrefilter, dir, orm.g * 4.0).rgb;
    } else {
        diffuse = uAmbientColor * uAmbientEnergy * albedo;
        specular = vec3(0.0);
    }

    vec4 ssr = texture(uTexSSR, vTexCoord);
    specular = mix(specular, ssr.rgb, ssr.a * (1.0 - orm.g));

    diffuse += texture(uTexSSIL, vTexCoord).rgb * albedo;

    outDiffuse = vec4(diffuse * ao, 1.0);
    outSpecular = vec4(specular * ao, 1.0);
}
`

const lightFragSrc = `#version 450

layout(location = 0) in vec2 vTexCoord;

uniform sampler2D uTexAlbedo;
uniform sampler2D uTexNormal;
uniform sampler2D uTexORM;
uniform sampler2D uTexDepth;
uniform sampler2D uTexShadow;
uniform samplerCube uTexShadowCube;
uniform mat4 uMatInvProj;
uniform mat4 uMatInvView;
uniform mat4 uMatShadowVP;
uniform vec3 uViewPosition;

uniform int uLightType; // 0 directional, 1 spot, 2 omni
uniform vec3 uLightPosition;
uniform vec3 uLightDirection;
uniform vec3 uLightColor;
uniform float uLightEnergy;
uniform float uLightSpecular;
uniform float uLightRange;
uniform float uLightAttenuation;
uniform float uInnerCutoff;
uniform float uOuterCutoff;
uniform int uShadow;
uniform float uShadowBias;
uniform float uShadowSoftness;
uniform float uShadowTexel;

layout(location = 0) out vec4 outDiffuse;
layout(location = 1) out vec4 outSpecular;

const float PI = 3.14159265359;

vec3 decodeOctahedral(vec2 e) {
    e = e * 2.0 - 1.0;
    vec3 n = vec3(e, 1.0 - abs(e.x) - abs(e.y));
    if (n.z < 0.0) {
        n.xy = (1.0 - abs(n.yx)) * vec2(n.x >= 0.0 ? 1.0 : -1.0, n.y >= 0.0 ? 1.0 : -1.0);
    }
    return normalize(n);
}

vec3 worldPos(vec2 uv) {
    float depth = texture(uTexDepth, uv).r;
    vec4 view = uMatInvProj * vec4(uv * 2.0 - 1.0, depth, 1.0);
    view /= view.w;
    return (uMatInvView * view).xyz;
}

float distributionGGX(float NdotH, float roughness) {
    float a2 = roughness * roughness * roughness * roughness;
    float d = NdotH * NdotH * (a2 - 1.0) + 1.0;
    return a2 / (PI * d * d);
}

float shadowFactor2D(vec3 world, float NdotL) {
    vec4 proj = uMatShadowVP * vec4(world, 1.0);
    proj /= proj.w;
    vec3 coords = proj.xyz * 0.5 + 0.5;
    if (any(lessThan(coords, vec3(0.0))) || any(greaterThan(coords.xy, vec2(1.0)))) return 1.0;

    float bias = max(uShadowBias * (1.0 - NdotL), uShadowBias * 0.1);
    float shadow = 0.0;
    for (int x = -1; x <= 1; x++) {
        for (int y = -1; y <= 1; y++) {
            vec2 offset = vec2(x, y) * uShadowTexel * uShadowSoftness;
            float stored = texture(uTexShadow, coords.xy + offset).r;
            shadow += coords.z - bias > stored ? 0.0 : 1.0;
        }
    }
    return shadow / 9.0;
}

float shadowFactorCube(vec3 world) {
    vec3 toFrag = world - uLightPosition;
    float stored = texture(uTexShadowCube, toFrag).r * uLightRange;
    return length(toFrag) - uShadowBias * uLightRange > stored ? 0.0 : 1.0;
}

void main() {
    vec3 world = worldPos(vTexCoord);
    vec3 albedo = texture(uTexAlbedo, vTexCoord).rgb;
    vec3 orm = texture(uTexORM, vTexCoord).rgb;
    vec3 normal = mat3(uMatInvView) * decodeOctahedral(texture(uTexNormal, vTexCoord).rg);

    vec3 L;
    float attenuation = 1.0;
    if (uLightType == 0) {
        L = -uLightDirection;
    } else {
        vec3 toLight = uLightPosition - world;
        float dist = length(toLight);
        if (dist > uLightRange) discard;
        L = toLight / dist;
        attenuation = pow(clamp(1.0 - dist / uLightRange, 0.0, 1.0), uLightAttenuation);
        if (uLightType == 1) {
            float theta = dot(-L, normalize(uLightDirection));
            float epsilon = max(cos(uInnerCutoff) - cos(uOuterCutoff), 1e-4);
            attenuation *= clamp((theta - cos(uOuterCutoff)) / epsilon, 0.0, 1.0);
        }
    }

    float NdotL = max(dot(normal, L), 0.0);
    if (NdotL <= 0.0 || attenuation <= 0.0) discard;

    float shadow = 1.0;
    if (uShadow != 0) {
        shadow = (uLightType == 2) ? shadowFactorCube(world) : shadowFactor2D(world, NdotL);
    }

    vec3 V = normalize(uViewPosition - world);
    vec3 H = normalize(V + L);
    float NdotH = max(dot(normal, H), 0.0);

    vec3 radiance = uLightColor * uLightEnergy * attenuation * shadow * NdotL;
    float spec = distributionGGX(NdotH, max(orm.g, 0.05)) * mix(0.04, 1.0, orm.b);

    outDiffuse = vec4(radiance * albedo * (1.0 - orm.b), 1.0);
    outSpecular = vec4(radiance * spec * uLightSpecular, 1.0);
}
`

const composeFragSrc = `#version 450

layout(location = 0) in vec2 vTexCoord;

uniform sampler2D uTexDiffuse;
uniform sampler2D uTexSpecular;
uniform sampler2D uTexEmission;

layout(location = 0) out vec4 outColor;

void main() {
    vec3 color = texture(uTexDiffuse, vTexCoord).rgb
               + texture(uTexSpecular, vTexCoord).rgb
               + texture(uTexEmission, vTexCoord).rgb;
    outColor = vec4(color, 1.0);
}
`

const backgroundFragSrc = `#version 450

uniform vec3 uColor;
uniform float uEnergy;

layout(location = 0) out vec4 outColor;

void main() {
    outColor = vec4(uColor * uEnergy, 1.0);
}
`

const skyboxFragSrc = `#version 450

layout(location = 0) in vec3 vLocalPos;

uniform samplerCube uTexSky;
uniform vec4 uSkyRotation;
uniform float uEnergy;

layout(location = 0) out vec4 outColor;

vec3 rotateByQuat(vec3 v, vec4 q) {
    return v + 2.0 * cross(q.xyz, cross(q.xyz, v) + q.w * v);
}

void main() {
    vec3 dir = rotateByQuat(normalize(vLocalPos), uSkyRotation);
    outColor = vec4(texture(uTexSky, dir).rgb * uEnergy, 1.0);
}
`

const forwardFragSrc = `#version 450

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
uniform vec3 uViewPosition;
uniform vec3 uAmbientColor;
uniform float uAmbientEnergy;

struct ForwardLight {
    int type;
    int enabled;
    vec3 position;
    vec3 direction;
    vec3 color;
    float energy;
    float range;
    float attenuation;
    float innerCutoff;
    float outerCutoff;
};
uniform ForwardLight uLights[4];

layout(location = 0) out vec4 outColor;

void main() {
    vec4 albedo = texture(uTexAlbedo, vTexCoord) * uAlbedoColor * vColor;
    if (albedo.a < uAlphaCutoff) discard;

    vec3 tangentNormal = texture(uTexNormal, vTexCoord).xyz * 2.0 - 1.0;
    tangentNormal.xy *= uNormalScale;
    vec3 normal = normalize(vTBN * tangentNormal);
    vec3 orm = texture(uTexORM, vTexCoord).rgb;

    vec3 color = uAmbientColor * uAmbientEnergy * albedo.rgb * orm.r * uOcclusion;
    for (int i = 0; i < 4; i++) {
        if (uLights[i].enabled == 0) continue;
        vec3 L;
        float attenuation = 1.0;
        if (uLights[i].type == 0) {
            L = -uLights[i].direction;
        } else {
            vec3 toLight = uLights[i].position - vWorldPos;
            float dist = length(toLight);
            if (dist > uLights[i].range) continue;
            L = toLight / dist;
            attenuation = pow(clamp(1.0 - dist / uLights[i].range, 0.0, 1.0), uLights[i].attenuation);
            if (uLights[i].type == 1) {
                float theta = dot(-L, normalize(uLights[i].direction));
                float eps = max(cos(uLights[i].innerCutoff) - cos(uLights[i].outerCutoff), 1e-4);
                attenuation *= clamp((theta - cos(uLights[i].outerCutoff)) / eps, 0.0, 1.0);
            }
        }
        float NdotL = max(dot(normal, L), 0.0);
        color += uLights[i].color * uLights[i].energy * attenuation * NdotL * albedo.rgb;
    }

    color += texture(uTexEmission, vTexCoord).rgb * uEmissionColor * uEmissionEnergy;
    outColor = vec4(color, albedo.a);
}
`

const fogFragSrc = `#version 450

layout(location = 0) in vec2 vTexCoord;

uniform sampler2D uTexScene;
uniform sampler2D uTexDepth;
uniform int uFogMode; // 1 linear, 2 exp2, 3 exp
uniform vec3 uFogColor;
uniform float uFogStart;
uniform float uFogEnd;
uniform float uFogDensity;
uniform float uFogSkyAffect;
uniform float uNear;
uniform float uFar;

layout(location = 0) out vec4 outColor;

float linearDepth(float d) {
    return uNear * uFar / (uFar - d * (uFar - uNear));
}

void main() {
    vec3 scene = texture(uTexScene, vTexCoord).rgb;
    float depth = texture(uTexDepth, vTexCoord).r;
    float dist = linearDepth(depth);

    float factor;
    if (uFogMode == 1) {
        factor = clamp((uFogEnd - dist) / (uFogEnd - uFogStart), 0.0, 1.0);
    } else if (uFogMode == 2) {
        factor = exp(-uFogDensity * uFogDensity * dist * dist);
    } else {
        factor = exp(-uFogDensity * dist);
    }
    if (depth >= 1.0) factor = mix(1.0, factor, uFogSkyAffect);

    outColor = vec4(mix(uFogColor, scene, factor), 1.0);
}
`

const dofFragSrc = `#version 450

layout(location = 0) in vec2 vTexCoord;

uniform sampler2D uTexScene;
uniform sampler2D uTexDepth;
uniform float uFocusPoint;
uniform float uFocusScale;
uniform float uMaxBlurSize;
uniform float uNear;
uniform float uFar;
uniform int uDebug;

layout(location = 0) out vec4 outColor;

float linearDepth(float d) {
    return uNear * uFar / (uFar - d * (uFar - uNear));
}

float circleOfConfusion(float dist) {
    return clamp(abs(dist - uFocusPoint) * uFocusScale / max(dist, 1e-4), 0.0, uMaxBlurSize);
}

void main() {
    float centerDist = linearDepth(texture(uTexDepth, vTexCoord).r);
    float coc = circleOfConfusion(centerDist);
    if (uDebug != 0) {
        outColor = vec4(vec3(coc / uMaxBlurSize), 1.0);
        return;
    }

    vec2 texel = 1.0 / vec2(textureSize(uTexScene, 0));
    vec3 sum = texture(uTexScene, vTexCoord).rgb;
    float weight = 1.0;
    const int TAPS = 16;
    for (int i = 0; i < TAPS; i++) {
        float a = float(i) * 2.39996;
        float r = coc * sqrt((float(i) + 0.5) / float(TAPS));
        vec2 uv = vTexCoord + vec2(cos(a), sin(a)) * r * texel;
        float tapCoC = circleOfConfusion(linearDepth(texture(uTexDepth, uv).r));
        float w = clamp(tapCoC / max(coc, 1e-4), 0.0, 1.0);
        sum += texture(uTexScene, uv).rgb * w;
        weight += w;
    }
    outColor = vec4(sum / weight, 1.0);
}
`

const bloomDownFragSrc = `#version 450

layout(location = 0) in vec2 vTexCoord;

uniform sampler2D uTexSource;
uniform int uSourceMip;
uniform int uKarisAverage;
uniform float uThreshold;
uniform float uSoftThreshold;

layout(location = 0) out vec4 outColor;

vec3 sampleSrc(vec2 uv) {
    return textureLod(uTexSource, uv, float(uSourceMip)).rgb;
}

float karisWeight(vec3 c) {
    return 1.0 / (1.0 + max(c.r, max(c.g, c.b)));
}

void main() {
    vec2 texel = 1.0 / vec2(textureSize(uTexSource, uSourceMip));

    // 13-tap downsample.
    vec3 a = sampleSrc(vTexCoord + texel * vec2(-2, 2));
    vec3 b = sampleSrc(vTexCoord + texel * vec2(0, 2));
    vec3 c = sampleSrc(vTexCoord + texel * vec2(2, 2));
    vec3 d = sampleSrc(vTexCoord + texel * vec2(-2, 0));
    vec3 e = sampleSrc(vTexCoord);
    vec3 f = sampleSrc(vTexCoord + texel * vec2(2, 0));
    vec3 g = sampleSrc(vTexCoord + texel * vec2(-2, -2));
    vec3 h = sampleSrc(vTexCoord + texel * vec2(0, -2));
    vec3 i = sampleSrc(vTexCoord + texel * vec2(2, -2));
    vec3 j = sampleSrc(vTexCoord + texel * vec2(-1, 1));
    vec3 k = sampleSrc(vTexCoord + texel * vec2(1, 1));
    vec3 l = sampleSrc(vTexCoord + texel * vec2(-1, -1));
    vec3 m = sampleSrc(vTexCoord + texel * vec2(1, -1));

    vec3 color;
    if (uKarisAverage != 0) {
        vec3 g0 = (a + b + d + e) * 0.25;
        vec3 g1 = (b + c + e + f) * 0.25;
        vec3 g2 = (d + e + g + h) * 0.25;
        vec3 g3 = (e + f + h + i) * 0.25;
        vec3 g4 = (j + k + l + m) * 0.25;
        color = g0 * karisWeight(g0) * 0.125 + g1 * karisWeight(g1) * 0.125
              + g2 * karisWeight(g2) * 0.125 + g3 * karisWeight(g3) * 0.125
              + g4 * karisWeight(g4) * 0.5;

        float brightness = max(color.r, max(color.g, color.b));
        float knee = uThreshold * uSoftThreshold;
        float soft = clamp(brightness - uThreshold + knee, 0.0, 2.0 * knee);
        soft = soft * soft / (4.0 * knee + 1e-4);
        color *= max(soft, brightness - uThreshold) / max(brightness, 1e-4);
    } else {
        color = e * 0.125 + (a + c + g + i) * 0.03125 + (b + d + f + h) * 0.0625 + (j + k + l + m) * 0.125;
    }
    outColor = vec4(color, 1.0);
}
`

const bloomUpFragSrc = `#version 450

layout(location = 0) in vec2 vTexCoord;

uniform sampler2D uTexSource;
uniform int uSourceMip;
uniform float uFilterRadius;

layout(location = 0) out vec4 outColor;

void main() {
    vec2 texel = uFilterRadius / vec2(textureSize(uTexSource, uSourceMip));

    vec3 sum = textureLod(uTexSource, vTexCoord, float(uSourceMip)).rgb * 4.0;
    sum += textureLod(uTexSource, vTexCoord + vec2(-texel.x, 0), float(uSourceMip)).rgb * 2.0;
    sum += textureLod(uTexSource, vTexCoord + vec2(texel.x, 0), float(uSourceMip)).rgb * 2.0;
    sum += textureLod(uTexSource, vTexCoord + vec2(0, -texel.y), float(uSourceMip)).rgb * 2.0;
    sum += textureLod(uTexSource, vTexCoord + vec2(0, texel.y), float(uSourceMip)).rgb * 2.0;
    sum += textureLod(uTexSource, vTexCoord + vec2(-texel.x, -texel.y), float(uSourceMip)).rgb;
    sum += textureLod(uTexSource, vTexCoord + vec2(texel.x, -texel.y), float(uSourceMip)).rgb;
    sum += textureLod(uTexSource, vTexCoord + vec2(-texel.x, texel.y), float(uSourceMip)).rgb;
    sum += textureLod(uTexSource, vTexCoord + vec2(texel.x, texel.y), float(uSourceMip)).rgb;

    outColor = vec4(sum / 16.0, 1.0);
}
`

const bloomCompositeFragSrc = `#version 450

layout(location = 0) in vec2 vTexCoord;

uniform sampler2D uTexScene;
uniform sampler2D uTexBloom;
uniform int uBloomMode; // 1 mix, 2 additive, 3 screen
uniform float uIntensity;

layout(location = 0) out vec4 outColor;

void main() {
    vec3 scene = texture(uTexScene, vTexCoord).rgb;
    vec3 bloom = texture(uTexBloom, vTexCoord).rgb * uIntensity;

    vec3 color;
    if (uBloomMode == 1) {
        color = mix(scene, bloom, clamp(uIntensity, 0.0, 1.0));
    } else if (uBloomMode == 3) {
        color = 1.0 - (1.0 - scene) * (1.0 - bloom);
    } else {
        color = scene + bloom;
    }
    outColor = vec4(color, 1.0);
}
`

const outputFragSrc = `#version 450

layout(location = 0) in vec2 vTexCoord;

uniform sampler2D uTexScene;
uniform int uTonemapMode; // 0 linear, 1 reinhard, 2 filmic, 3 aces, 4 agx
uniform float uExposure;
uniform float uWhite;
uniform float uBrightness;
uniform float uContrast;
uniform float uSaturation;

layout(location = 0) out vec4 outColor;

vec3 tonemapFilmic(vec3 x) {
    x = max(vec3(0.0), x - 0.004);
    return (x * (6.2 * x + 0.5)) / (x * (6.2 * x + 1.7) + 0.06);
}

vec3 tonemapACES(vec3 x) {
    return clamp((x * (2.51 * x + 0.03)) / (x * (2.43 * x + 0.59) + 0.14), 0.0, 1.0);
}

void main() {
    vec3 color = texture(uTexScene, vTexCoord).rgb * uExposure;

    if (uTonemapMode == 1) {
        color = color / (1.0 + color / (uWhite * uWhite));
    } else if (uTonemapMode == 2) {
        color = tonemapFilmic(color);
    } else if (uTonemapMode >= 3) {
        color = tonemapACES(color);
    }

    color = (color - 0.5) * uContrast + 0.5 + (uBrightness - 1.0);
    float luma = dot(color, vec3(0.2126, 0.7152, 0.0722));
    color = mix(vec3(luma), color, uSaturation);

    outColor = vec4(clamp(color, 0.0, 1.0), 1.0);
}
`

const fxaaFragSrc = `#version 450

layout(location = 0) in vec2 vTexCoord;

uniform sampler2D uTexScene;

layout(location = 0) out vec4 outColor;

float luma(vec3 c) {
    return dot(c, vec3(0.299, 0.587, 0.114));
}

void main() {
    vec2 texel = 1.0 / vec2(textureSize(uTexScene, 0));

    float lumaC = luma(texture(uTexScene, vTexCoord).rgb);
    float lumaN = luma(texture(uTexScene, vTexCoord + vec2(0, -texel.y)).rgb);
    float lumaS = luma(texture(uTexScene, vTexCoord + vec2(0, texel.y)).rgb);
    float lumaW = luma(texture(uTexScene, vTexCoord + vec2(-texel.x, 0)).rgb);
    float lumaE = luma(texture(uTexScene, vTexCoord + vec2(texel.x, 0)).rgb);

    float lumaMin = min(lumaC, min(min(lumaN, lumaS), min(lumaW, lumaE)));
    float lumaMax = max(lumaC, max(max(lumaN, lumaS), max(lumaW, lumaE)));
    if (lumaMax - lumaMin < max(0.0312, lumaMax * 0.125)) {
        outColor = texture(uTexScene, vTexCoord);
        return;
    }

    vec2 dir = vec2(-((lumaN + lumaS) - (lumaW + lumaE)), (lumaN + lumaW) - (lumaS + lumaE));
    dir = normalize(dir) * texel;

    vec3 result = 0.5 * (texture(uTexScene, vTexCoord + dir * -0.166).rgb
                       + texture(uTexScene, vTexCoord + dir * 0.166).rgb);
    vec3 wide = 0.5 * result + 0.25 * (texture(uTexScene, vTexCoord + dir * -0.5).rgb
                                     + texture(uTexScene, vTexCoord + dir * 0.5).rgb);
    float lumaWide = luma(wide);
    outColor = vec4(lumaWide < lumaMin || lumaWide > lumaMax ? result : wide, 1.0);
}
`
