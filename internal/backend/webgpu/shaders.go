//go:build windows

package webgpu

// workgroupSize is the default number of threads per workgroup.
const workgroupSize = 256

const preluShaderName = "prelu_f32"

// preluShader computes y = max(x, 0) + s * min(x, 0) over gathered elements,
// with s already expanded to one slope per element.
const preluShader = `
@group(0) @binding(0) var<storage, read> x: array<f32>;
@group(0) @binding(1) var<storage, read> s: array<f32>;
@group(0) @binding(2) var<storage, read_write> y: array<f32>;

struct Params {
    size: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx < params.size) {
        y[idx] = max(x[idx], 0.0) + s[idx] * min(x[idx], 0.0);
    }
}
`
