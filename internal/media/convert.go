package media

import (
	"image"
	"image/color"
)

// ToNRGBA converts a video frame to a fixed interleaved 32-bit pixel layout.
// Rows are copied using the lesser of the source and destination stride so a
// frame with padded or truncated rows can never overrun either buffer.
func ToNRGBA(f *VideoFrame) *image.NRGBA {
	if f == nil || !f.Caps.IsValid() {
		return nil
	}
	img := image.NewNRGBA(image.Rect(0, 0, f.Caps.Width, f.Caps.Height))

	switch f.Caps.Format {
	case PixelFormatNRGBA:
		stride := min(f.Strides[0], img.Stride)
		for y := 0; y < f.Caps.Height; y++ {
			src := f.Planes[0][y*f.Strides[0]:]
			dst := img.Pix[y*img.Stride:]
			copy(dst[:stride], src[:stride])
		}

	case PixelFormatYUV420P:
		for y := 0; y < f.Caps.Height; y++ {
			yRow := f.Planes[0][y*f.Strides[0]:]
			uRow := f.Planes[1][(y/2)*f.Strides[1]:]
			vRow := f.Planes[2][(y/2)*f.Strides[2]:]
			dst := img.Pix[y*img.Stride:]
			for x := 0; x < f.Caps.Width; x++ {
				r, g, b := color.YCbCrToRGB(yRow[x], uRow[x/2], vRow[x/2])
				o := 4 * x
				dst[o+0] = r
				dst[o+1] = g
				dst[o+2] = b
				dst[o+3] = 0xff
			}
		}

	default:
		return nil
	}

	return img
}

// ToYCbCr returns the frame as an image.YCbCr. Zero-copy when the frame is
// already planar 4:2:0 with tight strides, otherwise the planes are repacked.
func ToYCbCr(f *VideoFrame) *image.YCbCr {
	if f == nil || f.Caps.Format != PixelFormatYUV420P {
		return nil
	}
	w, h := f.Caps.Width, f.Caps.Height
	cw := (w + 1) / 2

	if f.Strides[0] == w && f.Strides[1] == cw && f.Strides[2] == cw {
		return &image.YCbCr{
			Y:              f.Planes[0],
			Cb:             f.Planes[1],
			Cr:             f.Planes[2],
			YStride:        f.Strides[0],
			CStride:        f.Strides[1],
			SubsampleRatio: image.YCbCrSubsampleRatio420,
			Rect:           image.Rect(0, 0, w, h),
		}
	}

	img := image.NewYCbCr(image.Rect(0, 0, w, h), image.YCbCrSubsampleRatio420)
	for y := 0; y < h; y++ {
		copy(img.Y[y*img.YStride:(y*img.YStride)+w], f.Planes[0][y*f.Strides[0]:])
	}
	ch := (h + 1) / 2
	for y := 0; y < ch; y++ {
		copy(img.Cb[y*img.CStride:(y*img.CStride)+cw], f.Planes[1][y*f.Strides[1]:])
		copy(img.Cr[y*img.CStride:(y*img.CStride)+cw], f.Planes[2][y*f.Strides[2]:])
	}
	return img
}

// FrameFromImage converts a decoded image into an NRGBA video frame.
// Used by decode sources that hand frames back to the preview pipeline.
func FrameFromImage(img image.Image, fps Fraction, pts int64) *VideoFrame {
	b := img.Bounds()
	caps := VideoCaps{
		Format: PixelFormatNRGBA,
		Width:  b.Dx(),
		Height: b.Dy(),
		FPS:    fps,
	}
	f := NewVideoFrame(caps)
	f.PTS = pts

	if src, ok := img.(*image.NRGBA); ok {
		stride := min(src.Stride, f.Strides[0])
		for y := 0; y < caps.Height; y++ {
			copy(f.Planes[0][y*f.Strides[0]:][:stride], src.Pix[y*src.Stride:][:stride])
		}
		return f
	}

	for y := 0; y < caps.Height; y++ {
		row := f.Planes[0][y*f.Strides[0]:]
		for x := 0; x < caps.Width; x++ {
			r, g, b, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			o := 4 * x
			row[o+0] = uint8(r >> 8)
			row[o+1] = uint8(g >> 8)
			row[o+2] = uint8(b >> 8)
			row[o+3] = uint8(a >> 8)
		}
	}
	return f
}
