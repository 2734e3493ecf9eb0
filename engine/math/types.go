package math

// Vec3 represents a 3D vector
type Vec3 struct {
	X, Y, Z float32
}

// Vec4 represents a 4D vector
type Vec4 struct {
	X, Y, Z, W float32
}

/**
 * @brief a 4x4 matrix, typically used to represent object transformations.
 * Elements are stored for row vectors (v' = v * M), so Data[12..14] hold the
 * translation. The memory layout is identical to a column-major matrix for
 * column vectors, which is what shaders consume.
 */
type Mat4 struct {
	/** @brief The matrix elements */
	Data [16]float32
}

/**
 * @brief Represents the transform of an object in the world.
 * Rotation is kept as an accumulated matrix rather than angles: every
 * Rotate call composes onto the previous orientation in call order.
 * NOTE: The properties of this should not be edited directly, but done
 * via the methods so the local matrix is regenerated.
 */
type Transform struct {
	/** @brief The position in the world. */
	Position Vec3
	/** @brief The accumulated rotation. */
	Rotation Mat4
	/** @brief The scale in the world. */
	Scale Vec3
	/**
	 * @brief Indicates if the position, rotation or scale have changed,
	 * indicating that the local matrix needs to be recalculated.
	 */
	IsDirty bool
	/**
	 * @brief The local transformation matrix, updated whenever
	 * the position, rotation or scale have changed.
	 */
	Local Mat4
}
