// Package body models articulated rigid bodies as trees of links.
//
// A [Body] owns a flat array of [Link] values addressed by a stable integer
// index assigned by [Body.UpdateLinkTree]. Each link carries one canonical
// [JointState] record, mass properties, an external wrench and a world
// transform computed by [Body.CalcForwardKinematics].
//
// Bodies are cloned through a [CloneMap] so that sub-resources shared between
// several bodies (geometry, material tables) are cloned once and the clones
// never alias the original model.
package body
